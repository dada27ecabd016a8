package port

import (
	"context"
	"errors"
)

// ErrBreachCorpusUnavailable reports that the breach corpus could not be
// queried. Callers must treat this as degraded service, not as a clean pass.
var ErrBreachCorpusUnavailable = errors.New("breach corpus unavailable")

// BreachChecker queries the compromised-credential corpus using the
// k-anonymity range protocol: only a truncated hash prefix ever leaves the
// process. Unreachability is a distinct error, never a silent pass.
type BreachChecker interface {
	Compromised(ctx context.Context, password string) (bool, error)
}
