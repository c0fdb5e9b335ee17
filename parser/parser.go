// Package parser converts catalog wire payloads into models and validates them.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-bookbase/models"
)

// VolumesResponse is the body of a search call. Items is absent when nothing matched.
type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume is one catalog entry as sent by the remote API.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo carries the descriptive fields of a Volume.
type VolumeInfo struct {
	Title         string      `json:"title"`
	Authors       []string    `json:"authors"`
	Publisher     string      `json:"publisher"`
	PublishedDate string      `json:"publishedDate"`
	Description   string      `json:"description"`
	PageCount     *int        `json:"pageCount"`
	Categories    []string    `json:"categories"`
	ImageLinks    *ImageLinks `json:"imageLinks"`
	Language      string      `json:"language"`
	AverageRating *float64    `json:"averageRating"`
	RatingsCount  *int        `json:"ratingsCount"`
}

// ImageLinks is the cover block of VolumeInfo.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// ErrorEnvelope is the error body the remote API sends with non-2xx statuses.
type ErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeVolumes parses a search body into records, skipping entries without an id.
func DecodeVolumes(body []byte) ([]models.BookRecord, error) {
	var resp VolumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode volumes: %w", err)
	}
	records := make([]models.BookRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		records = append(records, ToBookRecord(item))
	}
	return records, nil
}

// DecodeVolume parses a single fetch-by-id body.
func DecodeVolume(body []byte) (models.BookRecord, error) {
	var v Volume
	if err := json.Unmarshal(body, &v); err != nil {
		return models.BookRecord{}, fmt.Errorf("decode volume: %w", err)
	}
	record := ToBookRecord(v)
	if err := ValidateRecord(&record); err != nil {
		return models.BookRecord{}, err
	}
	return record, nil
}

// ErrorMessage extracts the server message from an error body, or "".
func ErrorMessage(body []byte) string {
	var env ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Error.Message)
}

// ToBookRecord maps a wire Volume onto the domain record.
func ToBookRecord(v Volume) models.BookRecord {
	info := v.VolumeInfo
	record := models.BookRecord{
		ID:            strings.TrimSpace(v.ID),
		Title:         strings.TrimSpace(info.Title),
		Authors:       NormalizeList(info.Authors),
		Publisher:     strings.TrimSpace(info.Publisher),
		PublishedDate: strings.TrimSpace(info.PublishedDate),
		Description:   info.Description,
		PageCount:     info.PageCount,
		Categories:    NormalizeList(info.Categories),
		Language:      strings.TrimSpace(info.Language),
		AverageRating: info.AverageRating,
		RatingsCount:  info.RatingsCount,
	}
	if info.ImageLinks != nil {
		links := &models.ImageLinks{
			SmallThumbnail: SecureURL(info.ImageLinks.SmallThumbnail),
			Thumbnail:      SecureURL(info.ImageLinks.Thumbnail),
		}
		if links.SmallThumbnail != "" || links.Thumbnail != "" {
			record.ImageLinks = links
		}
	}
	return record
}

// ValidateRecord ensures the fields the rest of the system relies on are present.
func ValidateRecord(b *models.BookRecord) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("book missing id")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title for %s", b.ID)
	}
	return nil
}

// SecureURL upgrades plain http references to https; the catalog serves covers over both.
func SecureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

// NormalizeList trims entries and drops blanks. A list with no usable entries becomes nil.
func NormalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
