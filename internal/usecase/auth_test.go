package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

func TestVerifyPasswordSuccess(t *testing.T) {
	account := testAccount(nil)
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(account), connections, nil, zaptest.NewLogger(t))

	got, err := service.VerifyPassword(context.Background(), "marie", "Tr4verse!Mtn#Oak", "laptop", "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("account id = %s, want %s", got.ID, account.ID)
	}
	if len(connections.appended) != 0 {
		t.Errorf("appended %d events, want none", len(connections.appended))
	}
}

func TestVerifyPasswordMismatchRecordsFailure(t *testing.T) {
	account := testAccount(nil)
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(account), connections, nil, zaptest.NewLogger(t))

	_, err := service.VerifyPassword(context.Background(), "marie", "wrong", "laptop", "10.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if len(connections.appended) != 1 {
		t.Fatalf("appended %d events, want 1", len(connections.appended))
	}
	event := connections.appended[0]
	if event.Status != domain.ConnectionFailed {
		t.Errorf("status = %s, want FAILED", event.Status)
	}
	if event.AccountID != account.ID || event.Device != "laptop" || event.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected event attribution: %+v", event)
	}
}

func TestVerifyPasswordUnknownUserLeavesNoTrace(t *testing.T) {
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(), connections, nil, zaptest.NewLogger(t))

	_, err := service.VerifyPassword(context.Background(), "ghost", "whatever", "laptop", "10.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if len(connections.appended) != 0 {
		t.Errorf("appended %d events for unknown user, want none", len(connections.appended))
	}
}

func TestVerifyPasswordEmptyInput(t *testing.T) {
	service := NewAuthService(testPepper, newStubAccounts(), newStubConnections(), nil, zaptest.NewLogger(t))

	if _, err := service.VerifyPassword(context.Background(), "", "secret", "d", "ip"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.VerifyPassword(context.Background(), "marie", "", "d", "ip"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRecordSuccess(t *testing.T) {
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(), connections, nil, zaptest.NewLogger(t))

	if err := service.RecordSuccess(context.Background(), "acc-1", "laptop", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(connections.appended) != 1 || connections.appended[0].Status != domain.ConnectionSuccess {
		t.Errorf("expected one SUCCESS event, got %+v", connections.appended)
	}
}

func TestVerifyBearer(t *testing.T) {
	account := testAccount(nil)
	manager := newTestTokenManager(t)
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(account), connections, manager, zaptest.NewLogger(t))

	token, err := manager.Sign(account.Username, 15*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := service.VerifyBearer(context.Background(), token, "laptop", "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("account id = %s, want %s", got.ID, account.ID)
	}
}

func TestVerifyBearerExpiredAttributesFailure(t *testing.T) {
	account := testAccount(nil)
	manager := newTestTokenManager(t)
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(account), connections, manager, zaptest.NewLogger(t))

	issued := time.Now().Add(-time.Hour)
	manager.WithClock(func() time.Time { return issued })
	token, err := manager.Sign(account.Username, 5*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	manager.WithClock(time.Now)

	_, err = service.VerifyBearer(context.Background(), token, "laptop", "10.0.0.1")
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
	if len(connections.appended) != 1 || connections.appended[0].Status != domain.ConnectionFailed {
		t.Fatalf("expected one FAILED event, got %+v", connections.appended)
	}
	if connections.appended[0].AccountID != account.ID {
		t.Errorf("event attributed to %s, want %s", connections.appended[0].AccountID, account.ID)
	}
}

func TestVerifyBearerInvalidRecordsNothing(t *testing.T) {
	connections := newStubConnections()
	service := NewAuthService(testPepper, newStubAccounts(), connections, newTestTokenManager(t), zaptest.NewLogger(t))

	_, err := service.VerifyBearer(context.Background(), "garbage", "laptop", "10.0.0.1")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(connections.appended) != 0 {
		t.Errorf("appended %d events for invalid token, want none", len(connections.appended))
	}
}
