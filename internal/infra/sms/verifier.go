package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
	"github.com/AurelieVidal/TempoAPI/internal/infra/logger"
)

// Verifier drives phone verification through an external verify API: one
// call to send the code, one to check it.
type Verifier struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

var _ port.SMSVerifier = (*Verifier)(nil)

// NewVerifier constructs a Verifier from settings.
func NewVerifier(cfg config.SMSSettings, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  log,
	}
}

// Start asks the verify API to send a code to the phone number.
func (v *Verifier) Start(ctx context.Context, phone string) error {
	if err := v.post(ctx, "/start", url.Values{"to": {phone}}, nil); err != nil {
		return fmt.Errorf("start phone verification: %w", err)
	}
	v.logger.Info("verification code sent",
		zap.String("phone", logger.MaskPhone(phone)),
	)
	return nil
}

// Check validates the code the user received.
func (v *Verifier) Check(ctx context.Context, phone, code string) (bool, error) {
	var result struct {
		Status string `json:"status"`
	}
	if err := v.post(ctx, "/check", url.Values{"to": {phone}, "code": {code}}, &result); err != nil {
		return false, fmt.Errorf("check phone verification: %w", err)
	}
	return strings.EqualFold(result.Status, "approved"), nil
}

func (v *Verifier) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("call verify api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("verify api returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode verify response: %w", err)
	}
	return nil
}

// StubVerifier logs verification calls and accepts a fixed code. Used when no
// verify API is configured, typically in development.
type StubVerifier struct {
	logger *zap.Logger
}

const stubCode = "000000"

var _ port.SMSVerifier = (*StubVerifier)(nil)

// NewStubVerifier constructs the logging stub.
func NewStubVerifier(log *zap.Logger) *StubVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubVerifier{logger: log}
}

// Start logs the request instead of sending a code.
func (s *StubVerifier) Start(_ context.Context, phone string) error {
	s.logger.Info("stub verifier: code requested",
		zap.String("phone", logger.MaskPhone(phone)),
	)
	return nil
}

// Check accepts only the fixed development code.
func (s *StubVerifier) Check(_ context.Context, phone, code string) (bool, error) {
	s.logger.Info("stub verifier: code checked",
		zap.String("phone", logger.MaskPhone(phone)),
	)
	return code == stubCode, nil
}
