package hibp

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
)

const prefixLength = 5

// Client queries the breach corpus with the k-anonymity range protocol: only
// the first 5 hex characters of SHA1(password) are sent; the full hash and
// the password never leave the process.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a breach-corpus client from configuration.
func NewClient(cfg config.BreachSettings, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Compromised reports whether the password appears in the breach corpus.
// Any transport failure or non-200 response surfaces as
// port.ErrBreachCorpusUnavailable.
func (c *Client) Compromised(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:prefixLength], digest[prefixLength:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+prefix, nil)
	if err != nil {
		return false, fmt.Errorf("build breach request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("breach corpus unreachable", zap.Error(err))
		return false, fmt.Errorf("%w: %v", port.ErrBreachCorpusUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("breach corpus returned error", zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("%w: status %d", port.ErrBreachCorpusUnavailable, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		candidate, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("%w: read response: %v", port.ErrBreachCorpusUnavailable, err)
	}

	return false, nil
}
