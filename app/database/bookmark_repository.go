package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var ErrBookmarkNotFound = errors.New("bookmark not found")

var (
	_ BookmarkStore = (*BookmarkRepository)(nil)
	_ ContentStore  = (*BookmarkRepository)(nil)
)

var bookmarkColumns = []string{
	"id", "owner", "link", "title", "source", "category",
	"sentiment", "published_at", "note", "saved_at",
	"content", "extraction_status", "extracted_at", "extraction_error",
}

var insertColumns = bookmarkColumns[:10]

// BookmarkRepository handles database operations for bookmarks
type BookmarkRepository struct {
	db      *DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

func NewBookmarkRepository(db *DB) *BookmarkRepository {
	return &BookmarkRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now:     time.Now,
	}
}

// SaveBookmark inserts a bookmark, or updates the owner's existing bookmark
// for the same link while keeping its id, saved time and extracted content.
func (r *BookmarkRepository) SaveBookmark(ctx context.Context, bookmark Bookmark) (*Bookmark, error) {
	if strings.TrimSpace(bookmark.Owner) == "" {
		return nil, fmt.Errorf("bookmark owner is required")
	}
	if strings.TrimSpace(bookmark.Link) == "" {
		return nil, fmt.Errorf("bookmark link is required")
	}

	query, args, err := r.builder.
		Insert("bookmarks").
		Columns(insertColumns...).
		Values(
			uuid.NewString(),
			bookmark.Owner,
			bookmark.Link,
			bookmark.Title,
			bookmark.Source,
			bookmark.Category,
			bookmark.Sentiment,
			toUnixNano(bookmark.PublishedAt),
			bookmark.Note,
			toUnixNano(r.now()),
		).
		Suffix(`ON CONFLICT (owner, link) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			category = excluded.category,
			sentiment = excluded.sentiment,
			published_at = excluded.published_at,
			note = excluded.note
			RETURNING id`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark insert: %w", err)
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to save bookmark: %w", err)
	}

	return r.GetBookmark(ctx, bookmark.Owner, id)
}

func (r *BookmarkRepository) GetBookmark(ctx context.Context, owner, id string) (*Bookmark, error) {
	query, args, err := r.builder.
		Select(bookmarkColumns...).
		From("bookmarks").
		Where(sq.Eq{"owner": owner, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark query: %w", err)
	}

	bookmark, err := scanBookmark(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: '%s'", ErrBookmarkNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	return bookmark, nil
}

// ListBookmarks returns the owner's bookmarks, most recently saved first.
func (r *BookmarkRepository) ListBookmarks(ctx context.Context, owner string, filter BookmarkFilter) ([]Bookmark, error) {
	builder := r.builder.
		Select(bookmarkColumns...).
		From("bookmarks").
		Where(sq.Eq{"owner": owner}).
		OrderBy("saved_at DESC", "id")

	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		builder = builder.Where(sq.Or{
			sq.Like{"title": pattern},
			sq.Like{"note": pattern},
		})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			builder = builder.Offset(uint64(filter.Offset))
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []Bookmark{}
	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, *bookmark)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

func (r *BookmarkRepository) GetBookmarkCount(ctx context.Context, owner string) (int, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From("bookmarks").
		Where(sq.Eq{"owner": owner}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}

	return count, nil
}

func (r *BookmarkRepository) UpdateBookmarkNote(ctx context.Context, owner, id, note string) (*Bookmark, error) {
	query, args, err := r.builder.
		Update("bookmarks").
		Set("note", note).
		Where(sq.Eq{"owner": owner, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark update: %w", err)
	}

	if err := r.execAffectingOne(ctx, id, query, args); err != nil {
		return nil, err
	}

	return r.GetBookmark(ctx, owner, id)
}

func (r *BookmarkRepository) DeleteBookmark(ctx context.Context, owner, id string) error {
	query, args, err := r.builder.
		Delete("bookmarks").
		Where(sq.Eq{"owner": owner, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bookmark delete: %w", err)
	}

	return r.execAffectingOne(ctx, id, query, args)
}

// ResetExtraction queues the bookmark for another content extraction.
func (r *BookmarkRepository) ResetExtraction(ctx context.Context, owner, id string) (*Bookmark, error) {
	query, args, err := r.builder.
		Update("bookmarks").
		Set("extraction_status", ExtractionPending).
		Set("extraction_error", "").
		Where(sq.Eq{"owner": owner, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction reset: %w", err)
	}

	if err := r.execAffectingOne(ctx, id, query, args); err != nil {
		return nil, err
	}

	return r.GetBookmark(ctx, owner, id)
}

// GetBookmarksForExtraction returns pending bookmarks of every owner, oldest first.
func (r *BookmarkRepository) GetBookmarksForExtraction(ctx context.Context, limit int) ([]Bookmark, error) {
	builder := r.builder.
		Select(bookmarkColumns...).
		From("bookmarks").
		Where(sq.Eq{"extraction_status": ExtractionPending}).
		OrderBy("saved_at", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks for extraction: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, *bookmark)
	}

	return bookmarks, rows.Err()
}

func (r *BookmarkRepository) UpdateExtractionResult(ctx context.Context, id, content, status, extractionError string) error {
	query, args, err := r.builder.
		Update("bookmarks").
		Set("content", content).
		Set("extraction_status", status).
		Set("extracted_at", toUnixNano(r.now())).
		Set("extraction_error", extractionError).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build extraction update: %w", err)
	}

	return r.execAffectingOne(ctx, id, query, args)
}

func (r *BookmarkRepository) execAffectingOne(ctx context.Context, id, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update bookmark: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: '%s'", ErrBookmarkNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (*Bookmark, error) {
	var b Bookmark
	var publishedAt, savedAt, extractedAt int64

	err := row.Scan(
		&b.ID, &b.Owner, &b.Link, &b.Title, &b.Source, &b.Category,
		&b.Sentiment, &publishedAt, &b.Note, &savedAt,
		&b.Content, &b.ExtractionStatus, &extractedAt, &b.ExtractionError,
	)
	if err != nil {
		return nil, err
	}

	b.PublishedAt = fromUnixNano(publishedAt)
	b.SavedAt = fromUnixNano(savedAt)
	b.ExtractedAt = fromUnixNano(extractedAt)
	return &b, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
