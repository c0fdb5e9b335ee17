// Package models defines data structures shared across bookbase.
package models

import "strings"

// BookRecord is one volume returned by the remote catalog.
type BookRecord struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Authors       []string    `json:"authors,omitempty"`
	Publisher     string      `json:"publisher,omitempty"`
	PublishedDate string      `json:"published_date,omitempty"`
	Description   string      `json:"description,omitempty"`
	PageCount     *int        `json:"page_count,omitempty"`
	Categories    []string    `json:"categories,omitempty"`
	ImageLinks    *ImageLinks `json:"image_links,omitempty"`
	Language      string      `json:"language,omitempty"`
	AverageRating *float64    `json:"average_rating,omitempty"`
	RatingsCount  *int        `json:"ratings_count,omitempty"`
}

// ImageLinks holds cover thumbnail references.
type ImageLinks struct {
	SmallThumbnail string `json:"small_thumbnail,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
}

// Thumbnail returns the large thumbnail reference, or "" when absent.
func (b BookRecord) Thumbnail() string {
	if b.ImageLinks == nil {
		return ""
	}
	return b.ImageLinks.Thumbnail
}

// AuthorLine renders the authors as a single display string.
func (b BookRecord) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}

// CategoryQuery pairs a display label with the query used to fill it.
type CategoryQuery struct {
	Label string `json:"label" mapstructure:"label"`
	Query string `json:"query" mapstructure:"query"`
}

// CategoryResult is a CategoryQuery together with the books it produced.
type CategoryResult struct {
	Query CategoryQuery `json:"query"`
	Books []BookRecord  `json:"books"`
}

// DefaultCategories is the browse view shown when no search is active.
func DefaultCategories() []CategoryQuery {
	return []CategoryQuery{
		{Label: "New releases", Query: "new releases"},
		{Label: "Bestsellers", Query: "bestsellers"},
		{Label: "BookTok favourites", Query: "booktok"},
		{Label: "Romance", Query: "romance"},
		{Label: "Thriller & suspense", Query: "thriller"},
		{Label: "Fantasy", Query: "fantasy"},
		{Label: "Sci-Fi", Query: "science fiction"},
		{Label: "Young adult", Query: "young adult"},
	}
}
