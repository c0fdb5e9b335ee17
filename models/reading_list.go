package models

// ReadingListEntry is a locally saved reference to a book.
// AddedAt is epoch milliseconds and is only used for ordering.
type ReadingListEntry struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Authors   string `json:"authors,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	AddedAt   int64  `json:"added_at"`
}

// NewReadingListEntry converts a catalog record into a reading list entry.
// AddedAt is left zero; the store stamps it on insert.
func NewReadingListEntry(b BookRecord) ReadingListEntry {
	return ReadingListEntry{
		BookID:    b.ID,
		Title:     b.Title,
		Authors:   b.AuthorLine(),
		Thumbnail: b.Thumbnail(),
	}
}

// SameContent reports whether two entries carry identical display data.
func (e ReadingListEntry) SameContent(other ReadingListEntry) bool {
	return e.BookID == other.BookID &&
		e.Title == other.Title &&
		e.Authors == other.Authors &&
		e.Thumbnail == other.Thumbnail
}
