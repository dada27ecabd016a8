package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

const testPepper = "pepper"

type stubAccounts struct {
	byUsername      map[string]*domain.Account
	byID            map[string]*domain.Account
	created         []domain.Account
	statusUpdates   map[string]domain.AccountStatus
	deviceUpdates   map[string][]string
	passwordUpdates map[string]string
	err             error
}

func newStubAccounts(accounts ...*domain.Account) *stubAccounts {
	s := &stubAccounts{
		byUsername:      make(map[string]*domain.Account),
		byID:            make(map[string]*domain.Account),
		statusUpdates:   make(map[string]domain.AccountStatus),
		deviceUpdates:   make(map[string][]string),
		passwordUpdates: make(map[string]string),
	}
	for _, account := range accounts {
		s.byUsername[account.Username] = account
		s.byID[account.ID] = account
	}
	return s
}

func (s *stubAccounts) Create(_ context.Context, account domain.Account) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, account)
	stored := account
	s.byUsername[account.Username] = &stored
	s.byID[account.ID] = &stored
	return nil
}

func (s *stubAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	account, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

func (s *stubAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	account, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

func (s *stubAccounts) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	s.statusUpdates[id] = status
	if account, ok := s.byID[id]; ok {
		account.Status = status
	}
	return nil
}

func (s *stubAccounts) UpdateDevices(_ context.Context, id string, devices []string) error {
	s.deviceUpdates[id] = devices
	return nil
}

func (s *stubAccounts) UpdatePassword(_ context.Context, id, passwordDigest, _ string) error {
	s.passwordUpdates[id] = passwordDigest
	return nil
}

func (s *stubAccounts) AddQuestion(_ context.Context, _ string, _ int64, _ string) error {
	return nil
}

func (s *stubAccounts) List(_ context.Context) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(s.byID))
	for _, account := range s.byID {
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

type stubConnections struct {
	events   []domain.ConnectionEvent
	appended []domain.ConnectionEvent
	resolved map[int64]domain.ConnectionStatus
	failures []domain.ConnectionEvent
	banNext  bool
	nextID   int64
	err      error
}

func newStubConnections(events ...domain.ConnectionEvent) *stubConnections {
	return &stubConnections{
		events:   events,
		resolved: make(map[int64]domain.ConnectionStatus),
		nextID:   1000,
	}
}

func (s *stubConnections) Append(_ context.Context, event domain.ConnectionEvent) (*domain.ConnectionEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	event.ID = s.nextID
	s.appended = append(s.appended, event)
	s.events = append([]domain.ConnectionEvent{event}, s.events...)
	return &event, nil
}

func (s *stubConnections) ListRecent(_ context.Context, _ string, limit int) ([]domain.ConnectionEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubConnections) GetChallenge(_ context.Context, id int64) (*domain.ConnectionEvent, error) {
	for i := range s.events {
		if s.events[i].ID == id && s.events[i].Status.Pending() {
			return &s.events[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubConnections) Resolve(_ context.Context, id int64, status domain.ConnectionStatus) error {
	s.resolved[id] = status
	return nil
}

func (s *stubConnections) RecordFailedValidation(_ context.Context, _ string, event domain.ConnectionEvent) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.failures = append(s.failures, event)
	s.events = append([]domain.ConnectionEvent{event}, s.events...)
	return s.banNext, nil
}

type stubTokenStore struct {
	byValue     map[string]*domain.RefreshToken
	rotated     []domain.RefreshToken
	deactivated []string
}

func newStubTokenStore(tokens ...*domain.RefreshToken) *stubTokenStore {
	s := &stubTokenStore{byValue: make(map[string]*domain.RefreshToken)}
	for _, token := range tokens {
		s.byValue[token.Value] = token
	}
	return s
}

func (s *stubTokenStore) Rotate(_ context.Context, token domain.RefreshToken) error {
	for _, existing := range s.byValue {
		if existing.AccountID == token.AccountID {
			existing.IsActive = false
		}
	}
	stored := token
	s.byValue[token.Value] = &stored
	s.rotated = append(s.rotated, token)
	return nil
}

func (s *stubTokenStore) GetByValue(_ context.Context, value string) (*domain.RefreshToken, error) {
	token, ok := s.byValue[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return token, nil
}

func (s *stubTokenStore) Deactivate(_ context.Context, id string) error {
	s.deactivated = append(s.deactivated, id)
	for _, token := range s.byValue {
		if token.ID == id {
			token.IsActive = false
		}
	}
	return nil
}

type stubNotifier struct {
	suspicious int
	forgotten  int
	changed    int
	emails     []string
	err        error
}

func (s *stubNotifier) NotifySuspiciousConnection(_ context.Context, _ domain.Account, _ domain.ConnectionEvent) error {
	s.suspicious++
	return s.err
}

func (s *stubNotifier) NotifyForgottenPassword(_ context.Context, _ domain.Account) error {
	s.forgotten++
	return s.err
}

func (s *stubNotifier) NotifyPasswordChanged(_ context.Context, _ domain.Account) error {
	s.changed++
	return s.err
}

func (s *stubNotifier) NotifyVerificationEmail(_ context.Context, _ domain.Account, token string) error {
	s.emails = append(s.emails, token)
	return s.err
}

type stubPublisher struct {
	flagged    []domain.ConnectionFlaggedEvent
	banned     []domain.AccountBannedEvent
	changed    []domain.PasswordChangedEvent
	registered []domain.AccountRegisteredEvent
	forgotten  []domain.ForgottenPasswordEvent
	err        error
}

func (s *stubPublisher) PublishConnectionFlagged(_ context.Context, event domain.ConnectionFlaggedEvent) error {
	s.flagged = append(s.flagged, event)
	return s.err
}

func (s *stubPublisher) PublishAccountBanned(_ context.Context, event domain.AccountBannedEvent) error {
	s.banned = append(s.banned, event)
	return s.err
}

func (s *stubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	s.changed = append(s.changed, event)
	return s.err
}

func (s *stubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	s.registered = append(s.registered, event)
	return s.err
}

func (s *stubPublisher) PublishForgottenPassword(_ context.Context, event domain.ForgottenPasswordEvent) error {
	s.forgotten = append(s.forgotten, event)
	return s.err
}

type stubQuestions struct {
	catalog map[int64]domain.SecurityQuestion
}

func newStubQuestions(questions ...domain.SecurityQuestion) *stubQuestions {
	s := &stubQuestions{catalog: make(map[int64]domain.SecurityQuestion)}
	for _, question := range questions {
		s.catalog[question.ID] = question
	}
	return s
}

func (s *stubQuestions) GetByID(_ context.Context, id int64) (*domain.SecurityQuestion, error) {
	question, ok := s.catalog[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &question, nil
}

func (s *stubQuestions) List(_ context.Context) ([]domain.SecurityQuestion, error) {
	questions := make([]domain.SecurityQuestion, 0, len(s.catalog))
	for _, question := range s.catalog {
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *stubQuestions) Random(ctx context.Context, n int) ([]domain.SecurityQuestion, error) {
	questions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) > n {
		questions = questions[:n]
	}
	return questions, nil
}

type stubSMS struct {
	started []string
	checked []string
	ok      bool
	err     error
}

func (s *stubSMS) Start(_ context.Context, phone string) error {
	s.started = append(s.started, phone)
	return s.err
}

func (s *stubSMS) Check(_ context.Context, phone, _ string) (bool, error) {
	s.checked = append(s.checked, phone)
	return s.ok, s.err
}

type stubBreach struct {
	compromised bool
	err         error
}

func (s *stubBreach) Compromised(_ context.Context, _ string) (bool, error) {
	return s.compromised, s.err
}

var (
	_ port.AccountRepository      = (*stubAccounts)(nil)
	_ port.ConnectionRepository   = (*stubConnections)(nil)
	_ port.RefreshTokenRepository = (*stubTokenStore)(nil)
	_ port.Notifier               = (*stubNotifier)(nil)
	_ port.EventPublisher         = (*stubPublisher)(nil)
	_ port.QuestionRepository     = (*stubQuestions)(nil)
	_ port.SMSVerifier            = (*stubSMS)(nil)
	_ port.BreachChecker          = (*stubBreach)(nil)
)

type testKeyProvider struct {
	kid string
	key *rsa.PrivateKey
}

func (p *testKeyProvider) GetSigningKey() (string, *rsa.PrivateKey, error) {
	return p.kid, p.key, nil
}

func (p *testKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	if kid != p.kid {
		return nil, security.ErrKeyNotFound
	}
	return &p.key.PublicKey, nil
}

func newTestTokenManager(t *testing.T) *security.TokenManager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return security.NewTokenManager(&testKeyProvider{kid: "test", key: key}, "tempo-api")
}

func testAccount(overrides func(*domain.Account)) *domain.Account {
	account := &domain.Account{
		ID:             "acc-1",
		Username:       "marie",
		Email:          "marie@example.com",
		Phone:          "+33600000000",
		PasswordDigest: security.ComputeDigest(testPepper, "Tr4verse!Mtn#Oak", "abcde"),
		Salt:           "abcde",
		Devices:        []string{"laptop"},
		Status:         domain.AccountStatusReady,
		Roles:          []string{"USER"},
		Questions: domain.QuestionSet{
			{
				QuestionID:   7,
				Question:     "first pet",
				AnswerDigest: security.ComputeDigest(testPepper, "rex", "abcde"),
			},
		},
	}
	if overrides != nil {
		overrides(account)
	}
	return account
}
