package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
)

func newTestRepository(t *testing.T) *BookmarkRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 || dirty {
		t.Fatalf("Expected clean migration version 2, got %d (dirty=%v)", version, dirty)
	}

	repo := NewBookmarkRepository(db)
	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func testArticle(link, title string, category feed.Category) feed.Article {
	return feed.Article{
		Link:        link,
		Title:       title,
		Source:      "Reuters",
		Category:    category,
		Sentiment:   feed.SentimentNeutral,
		PublishedAt: time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC),
	}
}

func TestNewConnectionRequiresPath(t *testing.T) {
	if _, err := NewConnection(""); err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := NewConnection(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	if _, _, err := RunMigrations(db); err != nil {
		t.Errorf("Expected second run to be a no-op, got %v", err)
	}
}

func TestSaveAndGetBookmark(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	saved, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", testArticle("https://example.com/a", "Market Growth Surge", feed.CategoryBusiness), "read later"))
	if err != nil {
		t.Fatal(err)
	}

	if saved.ID == "" {
		t.Error("Expected an id to be assigned")
	}
	if saved.Note != "read later" || saved.Category != "Business" {
		t.Errorf("Unexpected bookmark %+v", saved)
	}
	if !saved.PublishedAt.Equal(time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC)) {
		t.Errorf("Expected published time to round-trip, got %v", saved.PublishedAt)
	}
	if saved.SavedAt.IsZero() {
		t.Error("Expected saved time to be set")
	}

	got, err := repo.GetBookmark(ctx, "alice", saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Link != "https://example.com/a" {
		t.Errorf("Expected link 'https://example.com/a', got '%s'", got.Link)
	}

	if _, err := repo.GetBookmark(ctx, "bob", saved.ID); !errors.Is(err, ErrBookmarkNotFound) {
		t.Errorf("Expected other owners not to see the bookmark, got %v", err)
	}
}

func TestSaveBookmarkUpsertsPerOwnerAndLink(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	article := testArticle("https://example.com/a", "First title", feed.CategoryGeneral)

	first, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", article, ""))
	if err != nil {
		t.Fatal(err)
	}

	article.Title = "Updated title"
	second, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", article, "new note"))
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected the same bookmark to be updated, got %s and %s", first.ID, second.ID)
	}
	if second.Title != "Updated title" || second.Note != "new note" {
		t.Errorf("Expected title and note to be updated, got %+v", second)
	}
	if !second.SavedAt.Equal(first.SavedAt) {
		t.Error("Expected saved time to be kept")
	}

	if _, err := repo.SaveBookmark(ctx, BookmarkFromArticle("bob", article, "")); err != nil {
		t.Fatal(err)
	}

	count, err := repo.GetBookmarkCount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 bookmark for alice, got %d", count)
	}
}

func TestSaveBookmarkValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if _, err := repo.SaveBookmark(ctx, Bookmark{Owner: "alice"}); err == nil {
		t.Error("Expected error for missing link")
	}
	if _, err := repo.SaveBookmark(ctx, Bookmark{Link: "https://example.com"}); err == nil {
		t.Error("Expected error for missing owner")
	}
}

func TestListBookmarks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	articles := []feed.Article{
		testArticle("https://example.com/1", "Market Growth Surge", feed.CategoryBusiness),
		testArticle("https://example.com/2", "Government Election Crisis", feed.CategoryPolitics),
		testArticle("https://example.com/3", "Stocks slump on fears", feed.CategoryBusiness),
	}
	for _, article := range articles {
		if _, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", article, "")); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.ListBookmarks(ctx, "alice", BookmarkFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 bookmarks, got %d", len(all))
	}
	if all[0].Link != "https://example.com/3" {
		t.Errorf("Expected most recently saved first, got %s", all[0].Link)
	}

	business, _ := repo.ListBookmarks(ctx, "alice", BookmarkFilter{Category: "Business"})
	if len(business) != 2 {
		t.Errorf("Expected 2 Business bookmarks, got %d", len(business))
	}

	search, _ := repo.ListBookmarks(ctx, "alice", BookmarkFilter{Search: "election"})
	if len(search) != 1 || search[0].Link != "https://example.com/2" {
		t.Errorf("Expected the election bookmark, got %d results", len(search))
	}

	page, _ := repo.ListBookmarks(ctx, "alice", BookmarkFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].Link != "https://example.com/2" {
		t.Errorf("Expected the second bookmark on page two, got %d results", len(page))
	}

	none, _ := repo.ListBookmarks(ctx, "bob", BookmarkFilter{})
	if none == nil || len(none) != 0 {
		t.Errorf("Expected an empty list for bob, got %v", none)
	}
}

func TestUpdateAndDeleteBookmark(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	saved, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", testArticle("https://example.com/a", "Title", feed.CategoryGeneral), ""))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := repo.UpdateBookmarkNote(ctx, "alice", saved.ID, "important")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Note != "important" {
		t.Errorf("Expected note 'important', got '%s'", updated.Note)
	}

	if _, err := repo.UpdateBookmarkNote(ctx, "bob", saved.ID, "hijack"); !errors.Is(err, ErrBookmarkNotFound) {
		t.Errorf("Expected ErrBookmarkNotFound for another owner, got %v", err)
	}

	if err := repo.DeleteBookmark(ctx, "alice", saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteBookmark(ctx, "alice", saved.ID); !errors.Is(err, ErrBookmarkNotFound) {
		t.Errorf("Expected ErrBookmarkNotFound on second delete, got %v", err)
	}
}

func TestBookmarkExportRecord(t *testing.T) {
	bookmark := BookmarkFromArticle("alice", testArticle("https://example.com/a", "Title", feed.CategoryGeneral), "")
	record := bookmark.ExportRecord(time.FixedZone("IST", 5*3600+30*60))

	if record.Time != "2024-03-10 12:00" {
		t.Errorf("Expected time in display zone, got '%s'", record.Time)
	}
	if record.Category != "General" || record.Source != "Reuters" {
		t.Errorf("Unexpected record %+v", record)
	}
}

func TestContentExtractionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", testArticle("https://example.com/1", "First", feed.CategoryGeneral), ""))
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.SaveBookmark(ctx, BookmarkFromArticle("bob", testArticle("https://example.com/2", "Second", feed.CategoryGeneral), ""))
	if err != nil {
		t.Fatal(err)
	}

	if first.ExtractionStatus != ExtractionPending {
		t.Errorf("Expected new bookmarks to be pending, got '%s'", first.ExtractionStatus)
	}

	pending, err := repo.GetBookmarksForExtraction(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID {
		t.Fatalf("Expected both owners' bookmarks oldest first, got %d", len(pending))
	}

	if err := repo.UpdateExtractionResult(ctx, first.ID, "Readable text", ExtractionSuccess, ""); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateExtractionResult(ctx, second.ID, "", ExtractionFailed, "HTTP error: 404"); err != nil {
		t.Fatal(err)
	}

	pending, _ = repo.GetBookmarksForExtraction(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("Expected no pending bookmarks, got %d", len(pending))
	}

	got, _ := repo.GetBookmark(ctx, "alice", first.ID)
	if got.Content != "Readable text" || got.ExtractedAt.IsZero() {
		t.Errorf("Expected extracted content to be stored, got %+v", got)
	}

	// Re-saving keeps the extracted content
	resaved, err := repo.SaveBookmark(ctx, BookmarkFromArticle("alice", testArticle("https://example.com/1", "First", feed.CategoryGeneral), "note"))
	if err != nil {
		t.Fatal(err)
	}
	if resaved.Content != "Readable text" || resaved.ExtractionStatus != ExtractionSuccess {
		t.Errorf("Expected content to survive an upsert, got %+v", resaved)
	}

	reset, err := repo.ResetExtraction(ctx, "bob", second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reset.ExtractionStatus != ExtractionPending || reset.ExtractionError != "" {
		t.Errorf("Expected reset bookmark to be pending without error, got %+v", reset)
	}

	if err := repo.UpdateExtractionResult(ctx, "missing", "", ExtractionFailed, ""); !errors.Is(err, ErrBookmarkNotFound) {
		t.Errorf("Expected ErrBookmarkNotFound, got %v", err)
	}
}
