package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/spf13/cobra"
)

var coursesJSONOutput bool

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List ingested courses",
	Args:  cobra.NoArgs,
	RunE:  runCourses,
}

func init() {
	coursesCmd.Flags().BoolVar(&coursesJSONOutput, "json", false,
		"Output in JSON format")
}

func runCourses(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	titles, err := db.CourseTitles(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	chunks, err := db.ChunkCount(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}

	sort.Strings(titles)

	if coursesJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"courses":      titles,
			"total":        len(titles),
			"total_chunks": chunks,
		})
	}

	if len(titles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No courses found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COURSE")
	for _, title := range titles {
		fmt.Fprintln(w, title)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d courses, %d chunks\n", len(titles), chunks)

	return nil
}
