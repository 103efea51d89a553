package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsdesk/app/feed"
)

// WarmCacheTask prefetches every source of a channel so the next session
// cycle is served from the fetch cache.
type WarmCacheTask struct {
	Task
	channelConfig *feed.Channel
	warmer        Warmer
}

func NewWarmCacheTask(channel *feed.Channel, warmer Warmer) *WarmCacheTask {
	return &WarmCacheTask{
		Task:          NewTask(TaskTypeWarmCache, channel.Name),
		channelConfig: channel,
		warmer:        warmer,
	}
}

func (t *WarmCacheTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.channelConfig.Settings.Enabled {
		slog.Debug("Channel disabled, skipping", "channel", t.Channel)
		return nil
	}

	results := t.warmer.FetchAll(ctx, t.channelConfig.Feeds, t.channelConfig.Settings.GetTimeout())

	failed, cached := 0, 0
	for _, result := range results {
		switch {
		case !result.OK():
			failed++
		case result.FromCache:
			cached++
		}
	}

	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("all %d sources of channel '%s' failed", failed, t.Channel)
	}

	slog.Debug("Channel cache warmed",
		"channel", t.Channel,
		"sources", len(results),
		"failed", failed,
		"already_cached", cached,
		"duration", t.GetDuration())

	return nil
}
