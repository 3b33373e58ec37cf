// Package contact validates contact-form submissions and relays them to the
// site owner.
package contact

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portfolio-assistant/internal/cache"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/metrics"
)

const (
	MessageSent    = "Message sent successfully! I'll get back to you soon."
	MessageDevSent = "Message sent successfully! (Development mode - check the server log for details)"
	MessageFailed  = "Failed to send message. Please try again or contact me directly at Bodapatisaitej@gmail.com"

	// DefaultCooldown is the minimum gap between two submissions from one client.
	DefaultCooldown = 5 * time.Second

	// DefaultClientLimit bounds how many clients' cooldowns are remembered.
	DefaultClientLimit = 10000
)

var (
	ErrMissingField  = errors.New("contact: name, email and message are required")
	ErrInvalidEmail  = errors.New("contact: invalid email address")
	ErrCooldown      = errors.New("contact: please wait before sending another message")
	ErrNotConfigured = errors.New("contact: relay not configured")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form is a contact-form submission.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Message: strings.TrimSpace(f.Message),
	}
}

// Validate expects a normalized form.
func (f Form) Validate() error {
	if f.Name == "" || f.Email == "" || f.Message == "" {
		return ErrMissingField
	}
	if !ValidEmail(f.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, f.Email)
	}
	return nil
}

// ValidEmail applies the same loose check the site's form does.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Result is what the visitor sees.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Relay delivers a submission.
type Relay interface {
	Send(ctx context.Context, f Form) error
}

// Option configures a Service.
type Option func(*Service)

// WithMirror adds a best-effort relay that receives a copy of every accepted
// submission. Its failures are logged only.
func WithMirror(r Relay) Option {
	return func(s *Service) { s.mirrors = append(s.mirrors, r) }
}

// WithDevMode makes primary relay failures fall back to logging.
func WithDevMode(on bool) Option {
	return func(s *Service) { s.devMode = on }
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) { s.cooldown = d }
}

// WithClientLimit overrides DefaultClientLimit.
func WithClientLimit(n int) Option {
	return func(s *Service) { s.clientLimit = n }
}

// WithClock overrides time.Now for cooldown accounting.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service accepts submissions, one per cooldown period per client.
type Service struct {
	primary  Relay
	mirrors  []Relay
	devMode  bool
	cooldown time.Duration
	now      func() time.Time

	clientLimit int
	// A limiter idle for a full cooldown has refilled, so dropping it then
	// forgets nothing.
	limiters *cache.LRU[*rate.Limiter]
}

func NewService(primary Relay, opts ...Option) *Service {
	s := &Service{
		primary:     primary,
		cooldown:    DefaultCooldown,
		now:         time.Now,
		clientLimit: DefaultClientLimit,
	}
	for _, o := range opts {
		o(s)
	}
	s.limiters = cache.NewLRU[*rate.Limiter](s.clientLimit, s.cooldown, cache.WithClock(s.now))
	return s
}

func (s *Service) limiter(client string) *rate.Limiter {
	l, _ := s.limiters.GetOrLoad(client, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(s.cooldown), 1)
	})
	return l
}

// Submit validates f, applies the per-client cooldown and relays it. Invalid
// forms and cooldown hits are errors; a delivery failure is reported in the
// Result.
func (s *Service) Submit(ctx context.Context, client string, f Form) (Result, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		metrics.IncContact("invalid")
		return Result{}, err
	}
	if s.cooldown > 0 && !s.limiter(client).AllowN(s.now(), 1) {
		metrics.IncContact("cooldown")
		return Result{}, ErrCooldown
	}

	err := ErrNotConfigured
	if s.primary != nil {
		err = s.primary.Send(ctx, f)
	}
	var res Result
	switch {
	case err == nil:
		metrics.IncContact("sent")
		res = Result{Success: true, Message: MessageSent}
	case errors.Is(err, ErrNotConfigured) || s.devMode:
		metrics.IncContact("dev")
		s.logSubmission(f, err)
		res = Result{Success: true, Message: MessageDevSent}
	default:
		metrics.IncContact("failed")
		logger.L().Error("contact: delivery failed", zap.String("from", f.Email), zap.Error(err))
		return Result{Success: false, Message: MessageFailed}, nil
	}

	for _, m := range s.mirrors {
		if err := m.Send(ctx, f); err != nil {
			logger.L().Warn("contact: mirror relay failed", zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) logSubmission(f Form, cause error) {
	logger.L().Info("contact form submission (development mode)",
		zap.String("name", f.Name),
		zap.String("email", f.Email),
		zap.String("message", f.Message),
		zap.Time("timestamp", s.now()),
		zap.NamedError("relay_error", cause),
	)
}
