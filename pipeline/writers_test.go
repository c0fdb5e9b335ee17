package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-bookbase/models"
)

func sampleRecord() *models.BookRecord {
	pages := 412
	rating := 4.5
	return &models.BookRecord{
		ID:            "vol-1",
		Title:         "Dune",
		Authors:       []string{"Frank Herbert"},
		Publisher:     "Ace",
		PublishedDate: "1990-09-01",
		PageCount:     &pages,
		Categories:    []string{"Fiction", "Science Fiction"},
		Language:      "en",
		AverageRating: &rating,
		ImageLinks:    &models.ImageLinks{Thumbnail: "https://img.test/dune.jpg"},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	sparse := &models.BookRecord{ID: "vol-2", Title: "Untitled"}
	if err := writer.Write([]*models.BookRecord{sampleRecord(), sparse}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if records[0][0] != "id" || records[0][1] != "title" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	row := records[1]
	want := []string{"vol-1", "Dune", "Frank Herbert", "Ace", "1990-09-01", "412",
		"Fiction; Science Fiction", "en", "4.5", "", "https://img.test/dune.jpg"}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("column %s = %q, want %q", csvHeader[i], row[i], want[i])
		}
	}
	if records[2][5] != "" || records[2][8] != "" {
		t.Fatalf("absent optional fields should be blank: %v", records[2])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write([]*models.BookRecord{sampleRecord()}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.BookRecord
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.ID != "vol-1" || decoded.PageCount == nil || *decoded.PageCount != 412 {
			t.Fatalf("unexpected record %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 1 {
		t.Fatalf("json lines=%d, want 1", count)
	}
}

func TestJSONWriterValidateEmpty(t *testing.T) {
	writer, err := NewJSONWriter(filepath.Join(t.TempDir(), "empty.jsonl"))
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	defer writer.Close()
	if err := writer.Validate(); err == nil {
		t.Fatalf("expected empty file to fail validation")
	}
}

func TestNewWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format  string
		wantErr bool
		files   []string
	}{
		{format: "csv", files: []string{"csv.csv"}},
		{format: "JSON", files: []string{"json.csv"}},
		{format: "dual", files: []string{"dual.csv", "dual.jsonl"}},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(dir, tt.format+".csv")
			if tt.format == "JSON" {
				path = filepath.Join(dir, "json.csv")
			}
			writer, err := NewWriter(tt.format, path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWriter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if err := writer.Write([]*models.BookRecord{sampleRecord()}); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			for _, name := range tt.files {
				if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.Size() == 0 {
					t.Fatalf("%s missing or empty", name)
				}
			}
		})
	}
}
