package mailer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ErrSendFailed is returned when every delivery attempt failed or the
// retry window ran out.
var ErrSendFailed = errors.New("email delivery failed")

// Sender wraps a Transport with bounded retries. Transient transport
// failures are retried with exponential backoff; configuration errors
// fail immediately. A non-zero timeout caps the total retry window so
// callers never block past it.
type Sender struct {
	transport   Transport
	maxAttempts int
	timeout     time.Duration
	baseDelay   time.Duration
	sleep       func(time.Duration)
	now         func() time.Time
}

// NewSender creates a sender with the given retry budget. maxAttempts
// below 1 is clamped to 1; a zero timeout disables the window cap.
func NewSender(transport Transport, maxAttempts int, timeout time.Duration) *Sender {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Sender{
		transport:   transport,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		baseDelay:   500 * time.Millisecond,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// Send delivers a message, retrying transient failures up to the
// configured attempt budget and retry window.
func (s *Sender) Send(to, subject, body string) error {
	var deadline time.Time
	if s.timeout > 0 {
		deadline = s.now().Add(s.timeout)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := sendBackoff(s.baseDelay, attempt)
			if !deadline.IsZero() && s.now().Add(delay).After(deadline) {
				slog.Warn("Email retry window exhausted", "to", to, "attempts", attempts)
				break
			}
			slog.Info("Retrying email delivery", "to", to, "attempt", attempt+1, "delay", delay)
			s.sleep(delay)
		}
		attempts++
		err := s.transport.Deliver(to, subject, body)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotConfigured) {
			return err
		}
		lastErr = err
		slog.Warn("Email delivery attempt failed", "to", to, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrSendFailed, attempts, lastErr)
}

// sendBackoff returns min(base * 2^(attempt-1), 10s).
func sendBackoff(base time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	maxDelay := 10 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
