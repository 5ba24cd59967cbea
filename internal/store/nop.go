package store

import (
	"context"

	"github.com/amishk599/jobagent/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It reports every job as
// new and persists nothing, so later stages see an empty store.
type NopStore struct{}

var _ model.JobStore = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Insert(context.Context, model.Job) (bool, error) { return true, nil }

func (s *NopStore) GetUnanalyzed(context.Context, int) ([]model.Job, error) { return nil, nil }

func (s *NopStore) ApplyAnalysis(context.Context, string, model.ScoreResult) (bool, error) {
	return false, nil
}

func (s *NopStore) SelectForNotification(context.Context, model.DigestPolicy) ([]model.Job, error) {
	return nil, nil
}

func (s *NopStore) MarkNotified(context.Context, []string) (int64, error) { return 0, nil }

func (s *NopStore) InsertFeedback(context.Context, model.Feedback) error { return nil }

func (s *NopStore) RecentLikes(context.Context, int) ([]model.FeedbackJob, error) { return nil, nil }

func (s *NopStore) RecentDislikes(context.Context, int) ([]model.FeedbackJob, error) {
	return nil, nil
}

func (s *NopStore) Stats(context.Context, int) (model.Stats, error) { return model.Stats{}, nil }
