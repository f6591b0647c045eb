// Package retry wraps outbound data operations with transient/permanent
// error classification and exponential backoff.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Defaults: 3 attempts total with 1s, 2s, 4s between them. Worst case
// adds ~7s of backoff per wrapped operation.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy retries transient failures with exponential backoff. Permanent
// failures are returned immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	log         *logrus.Logger
}

// NewPolicy creates a retry policy with the default schedule
func NewPolicy(log *logrus.Logger) *Policy {
	return &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		log:         log,
	}
}

// Do runs op, retrying transient errors up to MaxAttempts times. The
// delay before attempt n+1 is BaseDelay * 2^(n-1). The last error is
// returned once attempts are exhausted.
func (p *Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			p.log.Warnf("Permanent error in %s, not retrying: %v", name, lastErr)
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		delay := p.BaseDelay << (attempt - 1)
		p.log.Warnf("Transient error in %s (attempt %d/%d), retrying in %s: %v",
			name, attempt, p.MaxAttempts, delay, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	p.log.Errorf("Retries exhausted for %s after %d attempts: %v", name, p.MaxAttempts, lastErr)
	return lastErr
}

// transientSubstrings matches driver errors that only expose their nature
// through the message text.
var transientSubstrings = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"broken pipe",
	"bad connection",
}

// transientPqClasses are Postgres error code classes worth retrying:
// 08 connection exceptions, 53 insufficient resources, 57 operator
// intervention (e.g. admin shutdown during failover).
var transientPqClasses = map[string]bool{
	"08": true,
	"53": true,
	"57": true,
}

// IsTransient reports whether err is a connection/timeout-class failure
// likely to succeed on retry. Anything unmatched is treated as permanent
// so bad input or authorization failures fail fast.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPqClasses[string(pqErr.Code.Class())]
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
