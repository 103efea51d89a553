package api

import (
	"context"
	"time"

	"github.com/lysyi3m/newsdesk/app/database"
	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/pipeline"
	"github.com/lysyi3m/newsdesk/app/session"
)

const ownerHeader = "X-Owner"

type Refresher interface {
	Refresh(ctx context.Context, sess *session.Context, channelName string) (pipeline.RenderModel, error)
}

type ChannelLister interface {
	GetChannel(name string) (*feed.Channel, error)
	GetChannels() []*feed.Channel
}

var (
	_ Refresher     = (*pipeline.Pipeline)(nil)
	_ ChannelLister = (*feed.ChannelCache)(nil)
)

type Handler struct {
	channels  ChannelLister
	sessions  *session.Store
	refresher Refresher
	bookmarks database.BookmarkStore
	location  *time.Location
	startedAt time.Time
}

type CreateSessionRequest struct {
	Owner         string   `json:"owner"`
	AlertKeywords []string `json:"alert_keywords"`
}

type LiveRequest struct {
	Channels []string `json:"channels"`
}

type AlertsRequest struct {
	Keywords []string `json:"keywords"`
}

// BookmarkRequest saves either an article from a session's last result
// (session_id, channel and link) or an article described in full.
type BookmarkRequest struct {
	SessionID   string     `json:"session_id"`
	Channel     string     `json:"channel"`
	Link        string     `json:"link" binding:"required"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	Category    string     `json:"category"`
	Sentiment   string     `json:"sentiment"`
	PublishedAt *time.Time `json:"published_at"`
	Note        string     `json:"note"`
}

type UpdateBookmarkRequest struct {
	Note string `json:"note"`
}

type ChannelInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Feeds    int    `json:"feeds"`
	Enabled  bool   `json:"enabled"`
	Warm     bool   `json:"warm"`
	MaxItems int    `json:"max_items"`
}

type BookmarkListResponse struct {
	Bookmarks []database.Bookmark `json:"bookmarks"`
	Total     int                 `json:"total"`
}
