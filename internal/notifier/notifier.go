// Package notifier delivers job digests to log, Slack, and e-mail.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

var _ model.Notifier = (*MultiNotifier)(nil)

// MultiNotifier fans a digest out to several channels. The digest counts as
// sent when at least one channel delivered it; each failed channel is logged
// at error level with the number of jobs it missed.
type MultiNotifier struct {
	notifiers []namedNotifier
	logger    *slog.Logger
}

type namedNotifier struct {
	name string
	n    model.Notifier
}

// NewMultiNotifier returns an empty fan-out notifier. Add channels with Add.
func NewMultiNotifier(logger *slog.Logger) *MultiNotifier {
	return &MultiNotifier{logger: logger}
}

// Add registers a channel under name.
func (m *MultiNotifier) Add(name string, n model.Notifier) {
	m.notifiers = append(m.notifiers, namedNotifier{name: name, n: n})
}

// Len returns the number of registered channels.
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// Notify sends jobs to every channel. Returns an error only if ALL channels fail.
func (m *MultiNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 || len(m.notifiers) == 0 {
		return nil
	}

	var (
		errs   []error
		failed []string
	)
	for _, nn := range m.notifiers {
		if err := nn.n.Notify(ctx, jobs); err != nil {
			m.logger.Error("notification channel failed", "channel", nn.name, "jobs", len(jobs), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", nn.name, err))
			failed = append(failed, nn.name)
		}
	}
	if len(errs) == len(m.notifiers) {
		return fmt.Errorf("all %d notification channels failed: %w", len(errs), errors.Join(errs...))
	}
	if len(failed) > 0 {
		// The jobs are marked notified anyway, so the failed channels never see them.
		m.logger.Error("digest partially delivered, jobs will not be resent",
			"failed_channels", failed,
			"delivered_channels", len(m.notifiers)-len(failed),
			"jobs", len(jobs),
		)
	}
	return nil
}

// SendTestMessage sends a digest of n synthetic jobs to verify the integration works.
func SendTestMessage(ctx context.Context, notifier model.Notifier, n int) error {
	if n <= 0 {
		n = 1
	}
	now := time.Now()
	jobs := make([]model.Job, n)
	for i := range jobs {
		j := testJob(now)
		if n > 1 {
			j.ContentID = fmt.Sprintf("test-%010d", i)
			j.Title = fmt.Sprintf("Test notification %d", i+1)
		}
		jobs[i] = j
	}
	return notifier.Notify(ctx, jobs)
}
