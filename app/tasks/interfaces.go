package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/pipeline"
	"github.com/lysyi3m/newsdesk/app/session"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to keep live sessions and the fetch cache
// fresh in the background.
//
//	scheduler := NewScheduler(channelCache, sessionStore, pipeline, fetcher, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Refresher interface {
	Refresh(ctx context.Context, sess *session.Context, channelName string) (pipeline.RenderModel, error)
}

type Warmer interface {
	FetchAll(ctx context.Context, sources []feed.Source, timeout time.Duration) []feed.FetchResult
}

type ChannelProvider interface {
	GetEnabledChannels() []*feed.Channel
}

type SessionProvider interface {
	Live() []*session.Context
	Sweep() int
}

var (
	_ Refresher       = (*pipeline.Pipeline)(nil)
	_ Warmer          = (*feed.Fetcher)(nil)
	_ ChannelProvider = (*feed.ChannelCache)(nil)
	_ SessionProvider = (*session.Store)(nil)
)
