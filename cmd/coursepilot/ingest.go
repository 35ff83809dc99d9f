package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/embedding"
	"github.com/coursepilot/coursepilot/internal/rag"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/spf13/cobra"
)

var (
	ingestClear      bool
	ingestJSONOutput bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest course scripts without running the server",
	Long:  "Parse, embed, and store every course script in a folder. Defaults to the configured docs directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false,
		"Remove existing courses and chunks before ingesting")
	ingestCmd.Flags().BoolVar(&ingestJSONOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(coursesCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := cfg.Docs.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	embedder := embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model)
	system := rag.New(db, embedder, nil, rag.Options{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
		MaxResults:   cfg.Retrieval.MaxResults,
		MaxHistory:   cfg.Retrieval.MaxHistory,
	})

	result, err := system.AddCourseFolder(ctx, dir, ingestClear)
	if err != nil {
		return fmt.Errorf("ingest folder: %w", err)
	}

	if ingestJSONOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %d courses (%d chunks) from %s\n",
		result.CoursesAdded, result.ChunksAdded, dir)
	return nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
