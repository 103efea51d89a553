package api

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsdesk/app/cfg"
	"github.com/lysyi3m/newsdesk/app/database"
	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/session"
)

func NewHandler(channels ChannelLister, sessions *session.Store, refresher Refresher,
	bookmarks database.BookmarkStore, location *time.Location) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		channels:  channels,
		sessions:  sessions,
		refresher: refresher,
		bookmarks: bookmarks,
		location:  location,
		startedAt: time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"timestamp":     time.Now().In(h.location).Format(time.RFC3339),
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
		"version":       cfg.GetVersion(),
		"channels":      len(h.channels.GetChannels()),
		"sessions":      h.sessions.Count(),
		"live_sessions": len(h.sessions.Live()),
		"display_tz":    h.location.String(),
	})
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels := h.channels.GetChannels()

	infos := make([]ChannelInfo, 0, len(channels)+1)
	for _, channel := range channels {
		infos = append(infos, ChannelInfo{
			Name:     channel.Name,
			Title:    channel.Title,
			Feeds:    len(channel.Feeds),
			Enabled:  channel.Settings.Enabled,
			Warm:     channel.Settings.Warm,
			MaxItems: channel.Settings.MaxItems,
		})
	}
	infos = append(infos, ChannelInfo{Name: feed.CustomChannel, Title: "Custom", Enabled: true})

	c.JSON(http.StatusOK, gin.H{
		"channels":   infos,
		"categories": feed.Categories,
		"total":      len(infos),
	})
}

// Sessions

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	sess := h.sessions.Create(cmp.Or(req.Owner, c.GetHeader(ownerHeader)))
	if len(req.AlertKeywords) > 0 {
		sess.SetAlertKeywords(req.AlertKeywords)
	}

	slog.Info("Session created", "session", sess.ID, "owner", sess.Owner)
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetChannel runs one refresh cycle for the session and returns the render model.
func (h *Handler) GetChannel(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	model, err := h.refresher.Refresh(c.Request.Context(), sess, strings.ToLower(c.Param("channel")))
	if err != nil {
		h.respondError(c, err, "refresh")
		return
	}

	c.Header("X-Refresh-Status", string(model.Status))
	c.JSON(http.StatusOK, model)
}

func (h *Handler) ApplyFilters(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var filters session.Filters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	criteria, lookback, err := filters.Criteria()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filters", "details": err.Error()})
		return
	}

	sess.ApplyFilters(criteria, lookback)
	slog.Debug("Filters applied", "session", sess.ID, "search", criteria.SearchQuery, "lookback", lookback)

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) ResetFilters(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.ResetFilters()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) ManualRefresh(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.ManualRefresh()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) StartLive(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req LiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	channels := make([]string, 0, len(req.Channels))
	for _, name := range req.Channels {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || slices.Contains(channels, name) {
			continue
		}
		if name != feed.CustomChannel {
			if _, err := h.channels.GetChannel(name); err != nil {
				h.respondError(c, err, "start_live")
				return
			}
		}
		channels = append(channels, name)
	}

	if len(channels) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one channel is required"})
		return
	}

	sess.StartLive(channels)
	slog.Info("Live mode started", "session", sess.ID, "channels", channels)

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) StopLive(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.StopLive()
	slog.Info("Live mode stopped", "session", sess.ID)

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) AddFeed(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var source feed.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	source.URL = strings.TrimSpace(source.URL)
	if err := sess.AddCustomFeed(source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (h *Handler) RemoveFeed(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	if !sess.RemoveCustomFeed(url) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) SetAlerts(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req AlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	keywords := slices.DeleteFunc(slices.Clone(req.Keywords), func(k string) bool {
		return strings.TrimSpace(k) == ""
	})
	sess.SetAlertKeywords(keywords)

	c.JSON(http.StatusOK, sess.Snapshot())
}

// ExportChannel writes the session's latest results for a channel.
func (h *Handler) ExportChannel(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	channel := strings.ToLower(c.Param("channel"))
	records := feed.RecordsFromArticles(sess.LastResult(channel), h.location)

	h.export(c, "news_"+channel, records)
}

// Bookmarks

func (h *Handler) ListBookmarks(c *gin.Context) {
	owner := ownerOf(c)

	filter := database.BookmarkFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookmarks, err := h.bookmarks.ListBookmarks(c.Request.Context(), owner, filter)
	if err != nil {
		h.respondError(c, err, "list_bookmarks")
		return
	}

	total, err := h.bookmarks.GetBookmarkCount(c.Request.Context(), owner)
	if err != nil {
		h.respondError(c, err, "count_bookmarks")
		return
	}

	c.JSON(http.StatusOK, BookmarkListResponse{Bookmarks: bookmarks, Total: total})
}

func (h *Handler) CreateBookmark(c *gin.Context) {
	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	bookmark, err := h.bookmarkFromRequest(ownerOf(c), req)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.respondError(c, err, "create_bookmark")
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bookmark", "details": err.Error()})
		return
	}

	saved, err := h.bookmarks.SaveBookmark(c.Request.Context(), bookmark)
	if err != nil {
		h.respondError(c, err, "create_bookmark")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// GetBookmark returns one bookmark including its extracted content.
func (h *Handler) GetBookmark(c *gin.Context) {
	bookmark, err := h.bookmarks.GetBookmark(c.Request.Context(), ownerOf(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get_bookmark")
		return
	}

	c.JSON(http.StatusOK, bookmark)
}

func (h *Handler) ExtractBookmark(c *gin.Context) {
	bookmark, err := h.bookmarks.ResetExtraction(c.Request.Context(), ownerOf(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "extract_bookmark")
		return
	}

	c.JSON(http.StatusAccepted, bookmark)
}

func (h *Handler) UpdateBookmark(c *gin.Context) {
	var req UpdateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	updated, err := h.bookmarks.UpdateBookmarkNote(c.Request.Context(), ownerOf(c), c.Param("id"), req.Note)
	if err != nil {
		h.respondError(c, err, "update_bookmark")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteBookmark(c *gin.Context) {
	if err := h.bookmarks.DeleteBookmark(c.Request.Context(), ownerOf(c), c.Param("id")); err != nil {
		h.respondError(c, err, "delete_bookmark")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ExportBookmarks(c *gin.Context) {
	bookmarks, err := h.bookmarks.ListBookmarks(c.Request.Context(), ownerOf(c), database.BookmarkFilter{
		Category: c.Query("category"),
	})
	if err != nil {
		h.respondError(c, err, "export_bookmarks")
		return
	}

	records := make([]feed.ExportRecord, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		records = append(records, bookmark.ExportRecord(h.location))
	}

	h.export(c, "bookmarks", records)
}

// Helpers

func (h *Handler) session(c *gin.Context) (*session.Context, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get_session")
		return nil, false
	}
	return sess, true
}

func (h *Handler) bookmarkFromRequest(owner string, req BookmarkRequest) (database.Bookmark, error) {
	if req.SessionID != "" && req.Channel != "" {
		sess, err := h.sessions.Get(req.SessionID)
		if err != nil {
			return database.Bookmark{}, err
		}

		for _, article := range sess.LastResult(strings.ToLower(req.Channel)) {
			if article.Link == req.Link {
				return database.BookmarkFromArticle(owner, article, req.Note), nil
			}
		}
		return database.Bookmark{}, fmt.Errorf("article '%s' is not in the latest results of '%s'", req.Link, req.Channel)
	}

	if strings.TrimSpace(req.Title) == "" {
		return database.Bookmark{}, fmt.Errorf("title is required")
	}

	bookmark := database.Bookmark{
		Owner:     owner,
		Link:      req.Link,
		Title:     req.Title,
		Source:    cmp.Or(req.Source, feed.ResolveSource("", req.Link)),
		Category:  req.Category,
		Sentiment: req.Sentiment,
		Note:      req.Note,
	}
	if req.PublishedAt != nil {
		bookmark.PublishedAt = *req.PublishedAt
	}
	return bookmark, nil
}

func (h *Handler) export(c *gin.Context, name string, records []feed.ExportRecord) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	stamp := time.Now().In(h.location).Format("20060102_1504")

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", name, stamp))
		c.Status(http.StatusOK)
		if err := feed.ExportCSV(c.Writer, records); err != nil {
			slog.Error("CSV export failed", "name", name, "error", err)
		}
	case "json":
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.json", name, stamp))
		c.Status(http.StatusOK)
		if err := feed.ExportJSON(c.Writer, records); err != nil {
			slog.Error("JSON export failed", "name", name, "error", err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported format '%s'", format)})
	}
}

func (h *Handler) respondError(c *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, feed.ErrUnknownChannel),
		errors.Is(err, database.ErrBookmarkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func ownerOf(c *gin.Context) string {
	return cmp.Or(strings.TrimSpace(c.GetHeader(ownerHeader)), session.DefaultOwner)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s parameter '%s'", name, raw)
	}
	return value, nil
}
