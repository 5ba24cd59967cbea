package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobagent/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the digest to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each job with score, company, title, location, and URL.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	n.logger.Info("digest", "subject", digestSubject(jobs))
	for _, j := range jobs {
		args := []any{
			"score", j.ScoreLabel(),
			"company", j.Company,
			"title", j.Title,
			"location", j.Location,
			"sector", SectorName(j.Sector),
			"url", j.URL,
		}
		if j.Deadline != "" {
			args = append(args, "deadline", j.Deadline)
		}
		n.logger.Info("relevant job", args...)
	}
	return nil
}
