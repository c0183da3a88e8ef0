package booking

import (
	"fmt"
	"strings"

	"appointment-booking/internal/domain"
)

// Code classifies why a booking was rejected.
type Code string

const (
	CodeInvalidInput      Code = "InvalidInput"
	CodePastTime          Code = "PastTime"
	CodeOutOfWindow       Code = "OutOfWindow"
	CodeWeeklyCapExceeded Code = "WeeklyCapExceeded"
	CodeDuplicateInBatch  Code = "DuplicateInBatch"
	CodeSlotConflict      Code = "SlotConflict"
	CodePlanMismatch      Code = "PlanMismatch"
)

// BatchIndex marks a violation that belongs to the batch rather than one slot.
const BatchIndex = -1

// ErrInvalidDateTime is returned when a date or time does not parse or does
// not exist in the resolved zone.
var ErrInvalidDateTime = fmt.Errorf("%w: invalid date or time", domain.ErrInvalidArgument)

// Violation is one reason a batch was rejected.
type Violation struct {
	Code    Code   `json:"code"`
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a rejected batch.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "booking rejected: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == domain.ErrBookingRejected }

// Has reports whether any violation carries code.
func (e *ValidationError) Has(code Code) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// OnlyConflicts reports whether every violation is a clash with an existing booking.
func (e *ValidationError) OnlyConflicts() bool {
	if len(e.Violations) == 0 {
		return false
	}
	for _, v := range e.Violations {
		if v.Code != CodeSlotConflict {
			return false
		}
	}
	return true
}

// Reject builds a single-violation error.
func Reject(code Code, index int, field, format string, args ...any) *ValidationError {
	return &ValidationError{Violations: []Violation{{
		Code:    code,
		Index:   index,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}}}
}
