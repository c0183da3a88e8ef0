//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/i18n"
)

// =============================
// Repositories
// =============================

// ---- Plans ----

type MockPlanRepo struct {
	mu   sync.Mutex
	byID map[string]*model.SubscriptionPlan

	SaveFunc   func(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error
	DeleteFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{byID: map[string]*model.SubscriptionPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, other := range r.byID {
		if id != p.ID && strings.EqualFold(other.Name, p.Name) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) List(ctx context.Context, tx repository.Tx, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.byID {
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if f.Offset >= len(out) {
		return []*model.SubscriptionPlan{}, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	active := true
	out, _, err := r.List(ctx, tx, repository.PlanFilter{IsActive: &active})
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, err
}

func (r *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// ---- Subscriptions ----

// MockSubscriptionRepo enforces the per-user instant uniqueness of live slots
// the way the database index does.
type MockSubscriptionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Subscription

	CreateFunc      func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	ExpireEndedFunc func(ctx context.Context, tx repository.Tx, now time.Time) (int, error)
	StatsFunc       func(ctx context.Context, tx repository.Tx, months int) (*model.SubscriptionStats, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{byID: map[string]*model.Subscription{}}
}

func cloneSub(s *model.Subscription) *model.Subscription {
	cp := *s
	cp.Sessions = make([]*model.Session, len(s.Sessions))
	for i, ss := range s.Sessions {
		c := *ss
		cp.Sessions[i] = &c
	}
	return &cp
}

func (r *MockSubscriptionRepo) taken(userID, exceptSub string, at time.Time) bool {
	for _, s := range r.byID {
		if s.ID == exceptSub || s.UserID != userID || !s.Status.Live() {
			continue
		}
		for _, ss := range s.Sessions {
			if ss.Holds() && ss.StartsAtUTC.Equal(at) {
				return true
			}
		}
	}
	return false
}

func (r *MockSubscriptionRepo) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.Status.Live() {
		for _, ss := range sub.Sessions {
			if r.taken(sub.UserID, sub.ID, ss.StartsAtUTC) {
				return domain.ErrSlotTaken
			}
		}
	}
	r.byID[sub.ID] = cloneSub(sub)
	return nil
}

func (r *MockSubscriptionRepo) Update(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[sub.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if sub.Status.Live() && !cur.Status.Live() {
		for _, ss := range cur.Sessions {
			if ss.Holds() && r.taken(sub.UserID, sub.ID, ss.StartsAtUTC) {
				return domain.ErrSlotTaken
			}
		}
	}
	next := cloneSub(sub)
	next.Sessions = cur.Sessions
	r.byID[sub.ID] = next
	return nil
}

func (r *MockSubscriptionRepo) UpdateSession(ctx context.Context, tx repository.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[s.SubscriptionID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, ss := range sub.Sessions {
		if ss.ID == s.ID {
			c := *s
			sub.Sessions[i] = &c
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSub(s), nil
}

func (r *MockSubscriptionRepo) FindLiveByUserAndPlan(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.UserID == userID && s.PlanID == planID && s.Status.Live() {
			return cloneSub(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Subscription{}
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, cloneSub(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MockSubscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Subscription{}
	for _, s := range r.byID {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.UserEmail != "" && !strings.Contains(s.UserEmail, strings.ToLower(f.UserEmail)) {
			continue
		}
		if f.PlanName != "" && !strings.EqualFold(s.PlanName, f.PlanName) {
			continue
		}
		out = append(out, cloneSub(s))
	}
	return out, len(out), nil
}

func (r *MockSubscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MockSubscriptionRepo) HeldInstantsByUser(ctx context.Context, tx repository.Tx, userID string) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, s := range r.byID {
		if s.UserID != userID || !s.Status.Live() {
			continue
		}
		for _, ss := range s.Sessions {
			if ss.Holds() {
				out = append(out, ss.StartsAtUTC)
			}
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) BookedSessions(ctx context.Context, tx repository.Tx, from time.Time) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Session{}
	for _, s := range r.byID {
		if !s.Status.Live() {
			continue
		}
		for _, ss := range s.Sessions {
			if ss.Status != model.SessionStatusCancelled && !ss.StartsAtUTC.Before(from) {
				c := *ss
				out = append(out, &c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAtUTC.Before(out[j].StartsAtUTC) })
	return out, nil
}

func (r *MockSubscriptionRepo) ExpireEnded(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	if r.ExpireEndedFunc != nil {
		return r.ExpireEndedFunc(ctx, tx, now)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.Expired(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) Stats(ctx context.Context, tx repository.Tx, months int) (*model.SubscriptionStats, error) {
	if r.StatsFunc != nil {
		return r.StatsFunc(ctx, tx, months)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return &model.SubscriptionStats{Total: len(r.byID)}, nil
}

// ---- Users ----

type MockUserRepo struct {
	mu   sync.Mutex
	byID map[string]*model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byID: map[string]*model.User{}}
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.byID {
		if id != u.ID && (o.Email == u.Email || o.Phone == u.Phone) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *MockUserRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Phone == phone })
}

func (r *MockUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.User{}
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := len(out)
	if offset >= len(out) {
		return []*model.User{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *MockUserRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// ---- Admins ----

type MockAdminRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Admin
}

var _ repository.AdminRepository = (*MockAdminRepo)(nil)

func NewMockAdminRepo() *MockAdminRepo {
	return &MockAdminRepo{byID: map[string]*model.Admin{}}
}

func (r *MockAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.byID {
		if id != a.ID && o.Email == a.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *MockAdminRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MockAdminRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAdminRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// ---- OTP store ----

type MockOTPStore struct {
	mu       sync.Mutex
	codes    map[string]*repository.OTPState
	verified map[string]bool
}

var _ repository.OTPStore = (*MockOTPStore)(nil)

func NewMockOTPStore() *MockOTPStore {
	return &MockOTPStore{codes: map[string]*repository.OTPState{}, verified: map[string]bool{}}
}

func otpKey(p repository.OTPPurpose, email string) string { return string(p) + ":" + email }

func (s *MockOTPStore) SaveOTP(ctx context.Context, p repository.OTPPurpose, email string, st *repository.OTPState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.codes[otpKey(p, email)] = &cp
	return nil
}

func (s *MockOTPStore) GetOTP(ctx context.Context, p repository.OTPPurpose, email string) (*repository.OTPState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.codes[otpKey(p, email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MockOTPStore) RecordFailedAttempt(ctx context.Context, p repository.OTPPurpose, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.codes[otpKey(p, email)]
	if !ok {
		return 0, domain.ErrNotFound
	}
	st.Attempts++
	return st.Attempts, nil
}

func (s *MockOTPStore) DeleteOTP(ctx context.Context, p repository.OTPPurpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, otpKey(p, email))
	return nil
}

func (s *MockOTPStore) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[email] = true
	return nil
}

func (s *MockOTPStore) IsVerified(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified[email], nil
}

func (s *MockOTPStore) ClearVerified(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verified, email)
	return nil
}

func (s *MockOTPStore) pending(p repository.OTPPurpose, email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[otpKey(p, email)]
	return ok
}

// ---- Transactions ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	calls      int
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type MockMailer struct {
	mu   sync.Mutex
	Sent []*adapter.Mail

	SendFunc func(ctx context.Context, m *adapter.Mail) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, mail *adapter.Mail) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, mail); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, mail)
	return nil
}

func (m *MockMailer) Last() *adapter.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// MockQueue runs tasks inline so their effects are visible to the test.
type MockQueue struct {
	mu    sync.Mutex
	Names []string
	Err   error
}

var _ adapter.TaskQueue = (*MockQueue)(nil)

func (q *MockQueue) Submit(name string, task adapter.Task) error {
	if q.Err != nil {
		return q.Err
	}
	q.mu.Lock()
	q.Names = append(q.Names, name)
	q.mu.Unlock()
	return task(context.Background())
}

type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Limit  int
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (r *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[key]++
	if r.Limit > 0 {
		limit = r.Limit
	}
	return r.counts[key] <= limit, nil
}

// =============================
// Helpers
// =============================

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestTranslator() *i18n.Translator {
	return i18n.MustDefault()
}

// fixedCodes hands out the given codes in order.
func fixedCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
