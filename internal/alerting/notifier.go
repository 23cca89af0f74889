package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/tracing"
)

// ErrNoChannels is returned when no delivery channel is configured.
var ErrNoChannels = errors.New("no alerting channels configured")

// Alert 封装单条速报的投递内容。
type Alert struct {
	Title       string
	Summary     string
	ActionGuide string
	Source      string
	URL         string
	Currencies  []string
	Confidence  domain.Confidence
	// Excerpt is shown to the pro audience only.
	Excerpt     string
	Disclaimer  string
	PublishedAt time.Time
}

// DigestItem is one line of a digest.
type DigestItem struct {
	Title      string
	URL        string
	Summary    string
	Currencies []string
	Confidence domain.Confidence
	Impact     int
}

// Digest 封装定时摘要。
type Digest struct {
	Title      string
	Period     string
	Items      []DigestItem
	Disclaimer string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	NotifyAlert(ctx context.Context, alert Alert) error
	NotifyDigest(ctx context.Context, digest Digest) error
}

// MultiNotifier fans a delivery out to every channel. The delivery counts as
// confirmed only when all channels accept it.
type MultiNotifier struct {
	channels []namedNotifier
}

type namedNotifier struct {
	name string
	Notifier
}

// NewMultiNotifier builds a fan-out notifier. At least one channel is required.
func NewMultiNotifier(channels map[string]Notifier, order []string) (*MultiNotifier, error) {
	m := &MultiNotifier{}
	for _, name := range order {
		n, ok := channels[name]
		if !ok || n == nil {
			continue
		}
		m.channels = append(m.channels, namedNotifier{name: name, Notifier: n})
	}
	if len(m.channels) == 0 {
		return nil, ErrNoChannels
	}
	return m, nil
}

// Channels lists the configured channel names.
func (m *MultiNotifier) Channels() []string {
	names := make([]string, len(m.channels))
	for i, ch := range m.channels {
		names[i] = ch.name
	}
	return names
}

// NotifyAlert implements Notifier.
func (m *MultiNotifier) NotifyAlert(ctx context.Context, alert Alert) error {
	return m.each(ctx, "notify.alert", func(ctx context.Context, n Notifier) error {
		return n.NotifyAlert(ctx, alert)
	})
}

// NotifyDigest implements Notifier.
func (m *MultiNotifier) NotifyDigest(ctx context.Context, digest Digest) error {
	return m.each(ctx, "notify.digest", func(ctx context.Context, n Notifier) error {
		return n.NotifyDigest(ctx, digest)
	})
}

func (m *MultiNotifier) each(ctx context.Context, span string, fn func(context.Context, Notifier) error) error {
	var errs []error
	for _, ch := range m.channels {
		cctx, s := tracing.Start(ctx, span+"."+ch.name)
		err := fn(cctx, ch.Notifier)
		tracing.Fail(s, err)
		s.End()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = (*MultiNotifier)(nil)
