package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookbase/controller"
	"github.com/aluiziolira/go-bookbase/models"
	"github.com/fatih/color"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	titleColor   = color.New(color.Bold)
	authorColor  = color.New(color.FgMagenta)
	mutedColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func printBrowse(w io.Writer, state controller.BrowseState) {
	switch state.Status {
	case controller.StatusError:
		errorColor.Fprintf(w, "search failed: %v\n", state.Err)
		return
	case controller.StatusLoading:
		mutedColor.Fprintln(w, "loading...")
		return
	}

	for _, category := range state.Categories {
		headingColor.Fprintf(w, "%s ", category.Query.Label)
		mutedColor.Fprintf(w, "(%d)\n", len(category.Books))
		if len(category.Books) == 0 {
			mutedColor.Fprintln(w, "  no books")
		}
		for _, b := range category.Books {
			printBookLine(w, b)
		}
		fmt.Fprintln(w)
	}
}

func printBookLine(w io.Writer, b models.BookRecord) {
	fmt.Fprint(w, "  ")
	titleColor.Fprint(w, b.Title)
	if line := b.AuthorLine(); line != "" {
		fmt.Fprint(w, " by ")
		authorColor.Fprint(w, line)
	}
	mutedColor.Fprintf(w, "  [%s]\n", b.ID)
}

func printDetail(w io.Writer, state controller.DetailState) {
	if state.Book != nil {
		b := state.Book
		titleColor.Fprintln(w, b.Title)
		if line := b.AuthorLine(); line != "" {
			authorColor.Fprintln(w, line)
		}
		printField(w, "Publisher", b.Publisher)
		printField(w, "Published", b.PublishedDate)
		if b.PageCount != nil {
			printField(w, "Pages", fmt.Sprint(*b.PageCount))
		}
		if b.AverageRating != nil {
			rating := fmt.Sprintf("%.1f", *b.AverageRating)
			if b.RatingsCount != nil {
				rating += fmt.Sprintf(" (%d ratings)", *b.RatingsCount)
			}
			printField(w, "Rating", rating)
		}
		printField(w, "Categories", strings.Join(b.Categories, ", "))
		printField(w, "Language", b.Language)
		printField(w, "Cover", b.Thumbnail())
		if b.Description != "" {
			fmt.Fprintf(w, "\n%s\n", b.Description)
		}
		fmt.Fprintln(w)
		if state.InReadingList {
			successColor.Fprintln(w, "In your reading list")
		} else {
			mutedColor.Fprintln(w, "Not in your reading list")
		}
	}
	if state.JustAdded {
		successColor.Fprintln(w, "Added to your reading list")
	}
	if state.Error != "" {
		errorColor.Fprintln(w, state.Error)
	}
}

func printField(w io.Writer, name, value string) {
	if value == "" {
		return
	}
	mutedColor.Fprintf(w, "%-11s", name+":")
	fmt.Fprintln(w, value)
}

func printReadingList(w io.Writer, state controller.ReadingListState) {
	switch state.Status {
	case controller.StatusLoading:
		mutedColor.Fprintln(w, "loading...")
		return
	case controller.StatusEmpty:
		mutedColor.Fprintln(w, "Your reading list is empty")
		return
	case controller.StatusError:
		warningColor.Fprintln(w, state.Message)
	}

	for _, e := range state.Entries {
		fmt.Fprint(w, "  ")
		titleColor.Fprint(w, e.Title)
		if e.Authors != "" {
			fmt.Fprint(w, " by ")
			authorColor.Fprint(w, e.Authors)
		}
		added := time.UnixMilli(e.AddedAt).Local().Format("2006-01-02 15:04")
		mutedColor.Fprintf(w, "  [%s, added %s]\n", e.BookID, added)
	}
}
