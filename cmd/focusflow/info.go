package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/focusflow/internal/config"
	"github.com/hyperengineering/focusflow/internal/store"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

var infoJSONOutput bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show local database details without running the server",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSONOutput, "json", false, "Output in JSON format")
}

type collectionInfo struct {
	Name      string `json:"name"`
	SizeBytes int    `json:"size_bytes"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	local, err := store.NewSQLiteStore(cfg.Local.Path)
	if err != nil {
		return err
	}
	defer local.Close()

	var sizeBytes int64
	if info, statErr := os.Stat(cfg.Local.Path); statErr == nil {
		sizeBytes = info.Size()
	}

	lastUser, err := local.GetMeta(ctx, store.MetaLastUserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	pending, err := local.CountOutbox(ctx)
	if err != nil {
		return err
	}

	var collections []collectionInfo
	for _, name := range []string{ffsync.TableTasks, ffsync.TableNotes, ffsync.TableGoals} {
		payload, err := local.LoadCollection(ctx, name)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		collections = append(collections, collectionInfo{Name: name, SizeBytes: len(payload)})
	}

	out := cmd.OutOrStdout()

	if infoJSONOutput {
		return printJSON(out, map[string]any{
			"path":            cfg.Local.Path,
			"size_bytes":      sizeBytes,
			"last_user_id":    lastUser,
			"pending_changes": pending,
			"collections":     collections,
		})
	}

	fmt.Fprintf(out, "Path:            %s\n", cfg.Local.Path)
	fmt.Fprintf(out, "Size:            %s\n", formatSize(sizeBytes))
	if lastUser != "" {
		fmt.Fprintf(out, "Last User:       %s\n", lastUser)
	}
	fmt.Fprintf(out, "Pending Changes: %d\n", pending)
	fmt.Fprintln(out)

	tw := newTabWriter(out)
	fmt.Fprintln(tw, "COLLECTION\tSIZE")
	for _, c := range collections {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, formatSize(int64(c.SizeBytes)))
	}
	return tw.Flush()
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
