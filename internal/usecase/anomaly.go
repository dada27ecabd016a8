package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
)

const historyWindow = 5

// AnomalyDetector classifies a login attempt against the account's recent
// connection history. Rules run in order and the first match wins; at most
// five ledger events are ever fetched.
type AnomalyDetector struct {
	accounts    port.AccountRepository
	connections port.ConnectionRepository
	staleAge    time.Duration
	ipWindow    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnomalyDetector constructs a detector. staleAge is the age beyond which
// the latest connection no longer vouches for the account (30 days);
// ipWindow is the recency window for the address-change heuristic (1 hour).
func NewAnomalyDetector(
	accounts port.AccountRepository,
	connections port.ConnectionRepository,
	staleAge time.Duration,
	ipWindow time.Duration,
	logger *zap.Logger,
) *AnomalyDetector {
	if staleAge <= 0 {
		staleAge = 30 * 24 * time.Hour
	}
	if ipWindow <= 0 {
		ipWindow = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnomalyDetector{
		accounts:    accounts,
		connections: connections,
		staleAge:    staleAge,
		ipWindow:    ipWindow,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (d *AnomalyDetector) WithClock(now func() time.Time) *AnomalyDetector {
	d.now = now
	return d
}

// IsSuspicious reports whether the attempt deviates from the account's
// history. Its only side effect is the idempotent device append performed
// when the latest event is a validated challenge.
func (d *AnomalyDetector) IsSuspicious(ctx context.Context, account *domain.Account, device, ip string) (bool, error) {
	events, err := d.connections.ListRecent(ctx, account.ID, historyWindow)
	if err != nil {
		return false, fmt.Errorf("list connections: %w", err)
	}

	// Bootstrap: a fresh account has nothing to compare against.
	if len(events) == 0 {
		return false, nil
	}

	latest := events[0]
	now := d.now()

	if latest.Status == domain.ConnectionValidated {
		if !account.KnowsDevice(device) {
			devices := account.WithDevice(device)
			if err := d.accounts.UpdateDevices(ctx, account.ID, devices); err != nil {
				return false, fmt.Errorf("append device: %w", err)
			}
			account.Devices = devices
			d.logger.Debug("device registered after validated challenge",
				zap.String("account_id", account.ID),
			)
		}
		return false, nil
	}

	if now.Sub(latest.Date) > d.staleAge || !account.KnowsDevice(device) {
		return true, nil
	}

	if len(events) == historyWindow && domain.AllFailed(events) {
		return true, nil
	}

	if ip != latest.IPAddress && now.Sub(latest.Date) < d.ipWindow {
		return true, nil
	}

	return false, nil
}
