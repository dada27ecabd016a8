package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type memoryRateLimitStore struct {
	count     int
	oldest    time.Time
	hasOldest bool
	trimErr   error

	trimmed  []string
	recorded []string
}

func (s *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, _ time.Duration, _ time.Time) error {
	s.trimmed = append(s.trimmed, identifier)
	return s.trimErr
}

func (s *memoryRateLimitStore) CountAttempts(_ context.Context, _ string, _ time.Duration, _ time.Time) (int, error) {
	return s.count, nil
}

func (s *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	s.recorded = append(s.recorded, identifier)
	return nil
}

func (s *memoryRateLimitStore) OldestAttempt(_ context.Context, _ string, _ time.Duration, _ time.Time) (time.Time, bool, error) {
	return s.oldest, s.hasOldest, nil
}

func newLimitedRouter(t *testing.T, store *memoryRateLimitStore, now time.Time, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{
		Name:   "forgotten",
		Limit:  limit,
		Window: time.Minute,
		Identifier: func(*gin.Context) (string, bool) {
			return "203.0.113.7", true
		},
	}))
	router.POST("/forgotten-password", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitAllowsAndRecords(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	store := &memoryRateLimitStore{
		count:     1,
		oldest:    now.Add(-20 * time.Second),
		hasOldest: true,
	}
	router := newLimitedRouter(t, store, now, 3)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/forgotten-password", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(store.recorded) != 1 || store.recorded[0] != "forgotten:203.0.113.7" {
		t.Fatalf("recorded attempts = %v, want one under the rule-scoped key", store.recorded)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "3" {
		t.Errorf("limit header = %q, want 3", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("remaining header = %q, want 1", got)
	}
	wantReset := store.oldest.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(wantReset, 10) {
		t.Errorf("reset header = %q, want %d", got, wantReset)
	}
}

func TestRateLimitBlocksAtLimit(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	store := &memoryRateLimitStore{
		count:     3,
		oldest:    now.Add(-15 * time.Second),
		hasOldest: true,
	}
	router := newLimitedRouter(t, store, now, 3)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/forgotten-password", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if len(store.recorded) != 0 {
		t.Errorf("recorded attempts = %v, want none when blocked", store.recorded)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Errorf("retry-after header = %q, want 45", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if problem.Type != rateLimitProblemType {
		t.Errorf("problem type = %q, want %q", problem.Type, rateLimitProblemType)
	}
	if problem.Status != http.StatusTooManyRequests || problem.RetryAfter != 45 {
		t.Errorf("unexpected problem payload: %+v", problem)
	}
	if problem.Instance != "/forgotten-password" {
		t.Errorf("problem instance = %q, want /forgotten-password", problem.Instance)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	store := &memoryRateLimitStore{trimErr: errors.New("redis down")}
	router := newLimitedRouter(t, store, now, 3)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/forgotten-password", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when the store is down", rr.Code)
	}
	if len(store.recorded) != 0 {
		t.Errorf("recorded attempts = %v, want none on failure", store.recorded)
	}
}
