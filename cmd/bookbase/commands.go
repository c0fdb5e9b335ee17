package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/controller"
	"github.com/aluiziolira/go-bookbase/pipeline"
	"github.com/spf13/cobra"
)

func newBrowseCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Show the default category view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			b := controller.NewBrowse(a.aggregator, a.catalog, a.cfg)
			b.Start(cmd.Context())
			b.Wait()
			printBrowse(cmd.OutOrStdout(), b.State())
			return nil
		},
	}
}

func newSearchCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog; a blank query shows the default view",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			b := controller.NewBrowse(a.aggregator, a.catalog, a.cfg)
			b.UpdateQuery(strings.Join(args, " "))
			b.SubmitSearch(cmd.Context())
			b.Wait()

			state := b.State()
			printBrowse(cmd.OutOrStdout(), state)
			if state.Status == controller.StatusError {
				return state.Err
			}
			return nil
		},
	}
}

func newShowCmd(current func() *app) *cobra.Command {
	var toggle bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book and whether it is on your reading list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			s, err := a.readingList(cmd.Context())
			if err != nil {
				return err
			}

			d := controller.NewDetail(a.catalog, s, args[0])
			loadErr := d.Load(cmd.Context())
			if toggle && loadErr == nil {
				if err := d.Toggle(cmd.Context()); err != nil {
					printDetail(cmd.OutOrStdout(), d.State())
					return err
				}
			}
			printDetail(cmd.OutOrStdout(), d.State())
			return loadErr
		},
	}
	cmd.Flags().BoolVar(&toggle, "toggle", false, "add the book to the reading list, or remove it if already there")
	return cmd
}

func newListCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show your reading list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			s, err := a.readingList(cmd.Context())
			if err != nil {
				return err
			}

			rl := controller.NewReadingList(s)
			rl.Start(cmd.Context())
			defer rl.Close()

			state, err := awaitReadingList(cmd.Context(), rl)
			if err != nil {
				return err
			}
			printReadingList(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func newAddCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id>",
		Short: "Add a book to your reading list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			s, err := a.readingList(cmd.Context())
			if err != nil {
				return err
			}
			book, err := a.catalog.FetchByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rl := controller.NewReadingList(s)
			if err := rl.Add(cmd.Context(), book); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Added %q to your reading list\n", book.Title)
			return nil
		},
	}
}

func newRemoveCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a book from your reading list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			s, err := a.readingList(cmd.Context())
			if err != nil {
				return err
			}
			entry, ok, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				warningColor.Fprintf(cmd.OutOrStdout(), "%s is not on your reading list\n", args[0])
				return nil
			}

			rl := controller.NewReadingList(s)
			if err := rl.Remove(cmd.Context(), entry); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Removed %q from your reading list\n", entry.Title)
			return nil
		},
	}
}

func newWatchCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the reading list every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			s, err := a.readingList(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rl := controller.NewReadingList(s)
			rl.Start(ctx)
			defer rl.Close()

			for {
				changed := rl.Changed()
				state := rl.State()
				if state.Status != controller.StatusLoading {
					headingColor.Fprintf(cmd.OutOrStdout(), "-- %s --\n", time.Now().Format(time.TimeOnly))
					printReadingList(cmd.OutOrStdout(), state)
				}
				select {
				case <-changed:
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
}

func newExportCmd(current func() *app) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every configured category and write the books to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if output == "" {
				output = a.cfg.OutputFile
			}
			if format == "" {
				format = a.cfg.OutputFormat
			}

			writer, err := pipeline.NewWriter(format, output)
			if err != nil {
				return err
			}
			defer func() {
				if err := writer.Close(); err != nil {
					slog.Error("close writer", slog.Any("error", err))
				}
			}()

			workers := a.cfg.MaxInFlight
			if value, ok, err := config.EnvInt("BOOKBASE_EXPORT_WORKERS"); err != nil {
				return fmt.Errorf("invalid BOOKBASE_EXPORT_WORKERS: %w", err)
			} else if ok {
				workers = value
			}

			p := pipeline.NewPipeline(cmd.Context(), writer, a.cfg)
			p.Start(workers)
			if a.cfg.Verbose {
				p.StartMetricsReporting(10 * time.Second)
			}

			start := time.Now()
			results := a.aggregator.Aggregate(cmd.Context(), a.cfg.Categories)
			if err := p.ProcessResults(results); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if err := p.Close(); err != nil {
				return fmt.Errorf("pipeline shutdown: %w", err)
			}
			if err := writer.Validate(); err != nil {
				return fmt.Errorf("output validation: %w", err)
			}

			printExportSummary(cmd, p.GetMetrics(), time.Since(start), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "", fmt.Sprintf("output format: %s, %s or %s", config.FormatCSV, config.FormatJSON, config.FormatDual))
	return cmd
}

func printExportSummary(cmd *cobra.Command, metrics map[string]interface{}, duration time.Duration, output string) {
	w := cmd.OutOrStdout()
	headingColor.Fprintln(w, "Export complete")
	fmt.Fprintf(w, "  Records:     %v\n", metrics["processed_records"])
	if rejected, ok := metrics["rejected"].(map[string]int); ok && len(rejected) > 0 {
		fmt.Fprintf(w, "  Rejected:    %v\n", rejected)
	}
	fmt.Fprintf(w, "  Duration:    %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file: %s\n", output)
}

// awaitReadingList waits for the first emission.
func awaitReadingList(ctx context.Context, rl *controller.ReadingList) (controller.ReadingListState, error) {
	for {
		changed := rl.Changed()
		state := rl.State()
		if state.Status != controller.StatusLoading {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}
