//go:build !integration

package web

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/config"
	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/usecase"
)

const testSecret = "test-jwt-secret-please-change-me"

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestAuth() *AuthManager {
	return NewAuthManager(config.AuthConfig{
		JWTSecret:    testSecret,
		TokenTTL:     time.Hour,
		TempTokenTTL: 30 * time.Minute,
		CookieName:   "token",
	})
}

// ---- AuthUseCase ----

type mockAuthUC struct {
	SendRegistrationOTPFunc  func(ctx context.Context, email string) error
	SendLoginOTPFunc         func(ctx context.Context, email string) error
	VerifyOTPFunc            func(ctx context.Context, email, code string) (*usecase.VerifyResult, error)
	CompleteRegistrationFunc func(ctx context.Context, email string, in usecase.RegistrationInput) (*model.User, error)
}

func (m *mockAuthUC) SendRegistrationOTP(ctx context.Context, email string) error {
	if m.SendRegistrationOTPFunc != nil {
		return m.SendRegistrationOTPFunc(ctx, email)
	}
	return nil
}
func (m *mockAuthUC) SendLoginOTP(ctx context.Context, email string) error {
	if m.SendLoginOTPFunc != nil {
		return m.SendLoginOTPFunc(ctx, email)
	}
	return nil
}
func (m *mockAuthUC) VerifyOTP(ctx context.Context, email, code string) (*usecase.VerifyResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return nil, domain.ErrInvalidOTP
}
func (m *mockAuthUC) CompleteRegistration(ctx context.Context, email string, in usecase.RegistrationInput) (*model.User, error) {
	if m.CompleteRegistrationFunc != nil {
		return m.CompleteRegistrationFunc(ctx, email, in)
	}
	return nil, domain.ErrEmailNotVerified
}

// ---- AdminUseCase ----

type mockAdminUC struct {
	RegisterFunc       func(ctx context.Context, actorID string, in usecase.AdminRegistration) (*model.Admin, error)
	LoginFunc          func(ctx context.Context, email, password string) (*model.Admin, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, email, code, newPassword string) error
	GetFunc            func(ctx context.Context, id string) (*model.Admin, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *mockAdminUC) Register(ctx context.Context, actorID string, in usecase.AdminRegistration) (*model.Admin, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, actorID, in)
	}
	return nil, domain.ErrForbidden
}
func (m *mockAdminUC) Login(ctx context.Context, email, password string) (*model.Admin, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, domain.ErrUnauthorized
}
func (m *mockAdminUC) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}
func (m *mockAdminUC) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, newPassword)
	}
	return nil
}
func (m *mockAdminUC) Get(ctx context.Context, id string) (*model.Admin, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockAdminUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// ---- UserUseCase ----

type mockUserUC struct {
	users map[string]*model.User
}

func newMockUserUC(users ...*model.User) *mockUserUC {
	m := &mockUserUC{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserUC) Profile(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}
func (m *mockUserUC) List(_ context.Context, offset, limit int) ([]*model.User, int, error) {
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	total := len(out)
	if offset >= total {
		return []*model.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}
func (m *mockUserUC) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}
func (m *mockUserUC) Count(_ context.Context) (int, error) { return len(m.users), nil }

// ---- PlanUseCase ----

type mockPlanUC struct {
	CreateFunc     func(ctx context.Context, in usecase.PlanInput, adminID string) (*model.SubscriptionPlan, error)
	ListFunc       func(ctx context.Context, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error)
	UpdateFunc     func(ctx context.Context, id string, in usecase.PlanUpdate) (*model.SubscriptionPlan, error)
	DeleteFunc     func(ctx context.Context, id string) error
	active         []*model.SubscriptionPlan
	byID           map[string]*model.SubscriptionPlan
	lastListFilter repository.PlanFilter
}

func newMockPlanUC(plans ...*model.SubscriptionPlan) *mockPlanUC {
	m := &mockPlanUC{byID: map[string]*model.SubscriptionPlan{}}
	for _, p := range plans {
		m.byID[p.ID] = p
		if p.IsActive {
			m.active = append(m.active, p)
		}
	}
	return m
}

func (m *mockPlanUC) Create(ctx context.Context, in usecase.PlanInput, adminID string) (*model.SubscriptionPlan, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in, adminID)
	}
	return model.NewSubscriptionPlan(in.Name, in.Description, in.SessionsPerMonth, in.SessionsPerWeek, in.Price, in.Currency, in.DurationDays, in.Features, adminID)
}
func (m *mockPlanUC) Get(_ context.Context, id string) (*model.SubscriptionPlan, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}
func (m *mockPlanUC) List(ctx context.Context, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error) {
	m.lastListFilter = f
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	out := make([]*model.SubscriptionPlan, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, len(out), nil
}
func (m *mockPlanUC) ListActive(_ context.Context) ([]*model.SubscriptionPlan, error) {
	return m.active, nil
}
func (m *mockPlanUC) Update(ctx context.Context, id string, in usecase.PlanUpdate) (*model.SubscriptionPlan, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, in)
	}
	return m.Get(ctx, id)
}
func (m *mockPlanUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}
func (m *mockPlanUC) ToggleActive(_ context.Context, id string) (*model.SubscriptionPlan, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.IsActive = !p.IsActive
	return p, nil
}

// ---- SubscriptionUseCase ----

type mockSubscriptionUC struct {
	CreateFunc        func(ctx context.Context, userID string, in usecase.CreateSubscriptionInput) (*model.Subscription, error)
	ListMineFunc      func(ctx context.Context, userID, displayCountry string) ([]*usecase.SubscriptionView, error)
	BookedFunc        func(ctx context.Context, displayCountry string) ([]usecase.BookedSlot, error)
	AvailableFunc     func(ctx context.Context, startDate, endDate, displayCountry string) ([]booking.OpenSlot, error)
	ListFunc          func(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, int, error)
	GetFunc           func(ctx context.Context, id string) (*model.Subscription, error)
	UpdateStatusFunc  func(ctx context.Context, id string, in usecase.StatusUpdate) (*model.Subscription, error)
	UpdateSessionFunc func(ctx context.Context, subID, sessionID string, status model.SessionStatus, notes *string) (*model.Subscription, error)
	DeleteFunc        func(ctx context.Context, id string) error
	StatsFunc         func(ctx context.Context) (*model.SubscriptionStats, error)
}

func (m *mockSubscriptionUC) Create(ctx context.Context, userID string, in usecase.CreateSubscriptionInput) (*model.Subscription, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, in)
	}
	return nil, domain.ErrOperationFailed
}
func (m *mockSubscriptionUC) ListMine(ctx context.Context, userID, displayCountry string) ([]*usecase.SubscriptionView, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx, userID, displayCountry)
	}
	return []*usecase.SubscriptionView{}, nil
}
func (m *mockSubscriptionUC) Booked(ctx context.Context, displayCountry string) ([]usecase.BookedSlot, error) {
	if m.BookedFunc != nil {
		return m.BookedFunc(ctx, displayCountry)
	}
	return []usecase.BookedSlot{}, nil
}
func (m *mockSubscriptionUC) Available(ctx context.Context, startDate, endDate, displayCountry string) ([]booking.OpenSlot, error) {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(ctx, startDate, endDate, displayCountry)
	}
	return nil, nil
}
func (m *mockSubscriptionUC) List(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return nil, 0, nil
}
func (m *mockSubscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockSubscriptionUC) UpdateStatus(ctx context.Context, id string, in usecase.StatusUpdate) (*model.Subscription, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, in)
	}
	return nil, domain.ErrNotFound
}
func (m *mockSubscriptionUC) UpdateSession(ctx context.Context, subID, sessionID string, status model.SessionStatus, notes *string) (*model.Subscription, error) {
	if m.UpdateSessionFunc != nil {
		return m.UpdateSessionFunc(ctx, subID, sessionID, status, notes)
	}
	return nil, domain.ErrNotFound
}
func (m *mockSubscriptionUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
func (m *mockSubscriptionUC) Stats(ctx context.Context) (*model.SubscriptionStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &model.SubscriptionStats{}, nil
}
func (m *mockSubscriptionUC) ExpireEnded(_ context.Context, _ time.Time) (int, error) { return 0, nil }

type mockChecker struct{ err error }

func (m mockChecker) Ping(context.Context) error { return m.err }
