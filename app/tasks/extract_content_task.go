package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/newsdesk/app/database"
	"github.com/lysyi3m/newsdesk/app/feed"
)

const maxArticleSize = 5 << 20

// ContentExtraction configures the bookmark content extractor.
type ContentExtraction struct {
	Store      database.ContentStore
	HTTPClient *http.Client
	Extractor  *feed.ContentExtractor
	UserAgent  string
	Timeout    time.Duration
	BatchSize  int

	// shared by the tasks of one scheduler so batches never overlap
	inFlight *atomic.Bool
}

type ExtractContentTask struct {
	Task
	ContentExtraction
}

func NewExtractContentTask(extraction ContentExtraction) *ExtractContentTask {
	return &ExtractContentTask{
		Task:              NewTask(TaskTypeExtractContent, "bookmarks"),
		ContentExtraction: extraction,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.inFlight != nil {
		if !t.inFlight.CompareAndSwap(false, true) {
			slog.Debug("Content extraction already running, skipping")
			return nil
		}
		defer t.inFlight.Store(false)
	}

	bookmarks, err := t.Store.GetBookmarksForExtraction(ctx, t.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get bookmarks for content extraction: %w", err)
	}

	if len(bookmarks) == 0 {
		slog.Debug("No bookmarks need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, bookmark := range bookmarks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		content, err := t.extract(ctx, bookmark.Link)
		if err != nil {
			slog.Warn("Failed to extract bookmark content", "bookmark_id", bookmark.ID, "url", bookmark.Link, "error", err)
			errorCount++

			if err := t.Store.UpdateExtractionResult(ctx, bookmark.ID, "", database.ExtractionFailed, err.Error()); err != nil {
				slog.Error("Failed to update content extraction status", "bookmark_id", bookmark.ID, "error", err)
			}
			continue
		}

		if err := t.Store.UpdateExtractionResult(ctx, bookmark.ID, content, database.ExtractionSuccess, ""); err != nil {
			return fmt.Errorf("failed to store extracted content: %w", err)
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extract(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("bookmark has no link")
	}

	data, err := t.fetchArticle(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	return t.Extractor.Run(data, link)
}

func (t *ExtractContentTask) fetchArticle(ctx context.Context, url string) ([]byte, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.UserAgent)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
