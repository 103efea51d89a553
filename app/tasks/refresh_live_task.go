package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsdesk/app/pipeline"
	"github.com/lysyi3m/newsdesk/app/session"
)

// RefreshLiveTask runs one pipeline cycle for a live session so that its
// live buffer keeps growing between client polls.
type RefreshLiveTask struct {
	Task
	session   *session.Context
	refresher Refresher
}

func NewRefreshLiveTask(channel string, sess *session.Context, refresher Refresher) *RefreshLiveTask {
	return &RefreshLiveTask{
		Task:      NewTask(TaskTypeRefreshLive, channel),
		session:   sess,
		refresher: refresher,
	}
}

func (t *RefreshLiveTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.session.IsLive() {
		slog.Debug("Session left live mode, skipping", "session", t.session.ID, "channel", t.Channel)
		return nil
	}

	model, err := t.refresher.Refresh(ctx, t.session, t.Channel)
	if err != nil {
		return fmt.Errorf("failed to refresh channel: %w", err)
	}

	switch model.Status {
	case pipeline.StatusNotDue:
		slog.Debug("Live refresh not due", "session", t.session.ID, "channel", t.Channel)
	case pipeline.StatusUnavailable:
		slog.Warn("Live channel unavailable", "session", t.session.ID, "channel", t.Channel, "failed", len(model.FailedSources))
	default:
		slog.Debug("Live refresh completed",
			"session", t.session.ID,
			"channel", t.Channel,
			"articles", model.Total,
			"duration", t.GetDuration())
	}

	if model.Alerts > 0 && model.Status != pipeline.StatusNotDue {
		slog.Info("Alert keywords matched", "session", t.session.ID, "channel", t.Channel, "count", model.Alerts)
	}

	return nil
}
