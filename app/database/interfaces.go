package database

import "context"

type BookmarkStore interface {
	SaveBookmark(ctx context.Context, bookmark Bookmark) (*Bookmark, error)
	GetBookmark(ctx context.Context, owner, id string) (*Bookmark, error)
	ListBookmarks(ctx context.Context, owner string, filter BookmarkFilter) ([]Bookmark, error)
	GetBookmarkCount(ctx context.Context, owner string) (int, error)

	UpdateBookmarkNote(ctx context.Context, owner, id, note string) (*Bookmark, error)
	DeleteBookmark(ctx context.Context, owner, id string) error
	ResetExtraction(ctx context.Context, owner, id string) (*Bookmark, error)
}

// ContentStore is the part of bookmark storage the content extractor needs.
type ContentStore interface {
	GetBookmarksForExtraction(ctx context.Context, limit int) ([]Bookmark, error)
	UpdateExtractionResult(ctx context.Context, id, content, status, extractionError string) error
}
