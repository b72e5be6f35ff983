package order

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/observability"
)

// Submission is a validated order ready to leave the shop.
type Submission struct {
	Reference string
	Form      Form
	Items     []cart.Item
	Total     int64
	Currency  string
	Message   string
	Links     Links
	CreatedAt time.Time
}

// Notifier receives submitted orders. Failures never block the outbound link.
type Notifier interface {
	Notify(ctx context.Context, sub Submission) error
}

// NopNotifier discards submissions.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Submission) error { return nil }

// Service builds order submissions for one destination phone.
type Service struct {
	phone    string
	currency string
	notifier Notifier
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sets the notifier called after each submission.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the clock used for references and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns ErrDisabled when phone is empty.
func NewService(phone, currency string, opts ...Option) (*Service, error) {
	if phone == "" {
		return nil, ErrDisabled
	}
	s := &Service{
		phone:    phone,
		currency: currency,
		notifier: NopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Phone returns the destination number in international digits-only form.
func (s *Service) Phone() string { return s.phone }

// Currency returns the symbol used in summaries and messages.
func (s *Service) Currency() string { return s.currency }

// Summary renders the confirmation prompt for items.
func (s *Service) Summary(items []cart.Item) string {
	return Summary(items, s.currency)
}

// Submit validates form against items and produces the outbound message and links.
func (s *Service) Submit(ctx context.Context, form Form, items []cart.Item, userAgent string) (Submission, error) {
	if _, err := Next(Open, EventSubmit, Input{CartSize: len(items), Form: form}); err != nil {
		return Submission{}, err
	}

	now := s.now().UTC()
	msg := Message(form, items, s.currency)
	sub := Submission{
		Reference: ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Form:      form,
		Items:     items,
		Total:     cart.Total(items),
		Currency:  s.currency,
		Message:   msg,
		Links:     BuildLinks(s.phone, msg, userAgent),
		CreatedAt: now,
	}

	logger := observability.FromContext(ctx).Named("order")
	if err := s.notifier.Notify(ctx, sub); err != nil {
		logger.Warn("order notification failed", zap.String("reference", sub.Reference), zap.Error(err))
	}
	logger.Info("order submitted",
		zap.String("reference", sub.Reference),
		zap.Int("items", len(items)),
		zap.Int64("total_minor", sub.Total),
		zap.Bool("mobile", IsMobile(userAgent)),
	)
	return sub, nil
}
