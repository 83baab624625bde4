package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show version history of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	storageDir, err := resolveStorage(storageFlag)
	if err != nil {
		return err
	}
	ctx := context.Background()
	eng, closeMeta, err := openEngine(ctx, storageDir)
	if err != nil {
		return err
	}
	defer closeMeta()

	file, versions, err := eng.History(ctx, args[0])
	if err != nil {
		return err
	}

	if historyJSON {
		type entry struct {
			Version int    `json:"version"`
			ID      int64  `json:"id"`
			Date    string `json:"date"`
			Size    int64  `json:"size"`
			Hash    string `json:"hash"`
			Current bool   `json:"current"`
		}
		out := make([]entry, 0, len(versions))
		for i, v := range versions {
			out = append(out, entry{
				Version: i + 1,
				ID:      v.ID,
				Date:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Size:    v.SizeBytes,
				Hash:    v.ObjectHash,
				Current: file.CurrentVersionID != nil && *file.CurrentVersionID == v.ID,
			})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "VER\tDATE\tSIZE\tHASH\n")
	for i, v := range versions {
		marker := ""
		if file.CurrentVersionID != nil && *file.CurrentVersionID == v.ID {
			marker = " *"
		}
		hash := v.ObjectHash
		if len(hash) > 12 {
			hash = hash[:12] + "..."
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\n", i+1, marker, v.CreatedAt.Format("2006-01-02 15:04:05"), humanSize(v.SizeBytes), hash)
	}
	return w.Flush()
}

func humanSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	size := float64(n)
	for _, u := range units {
		if size < 1024 || u == units[len(units)-1] {
			if u == "B" {
				return fmt.Sprintf("%d B", n)
			}
			return fmt.Sprintf("%.1f %s", size, u)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f PB", size)
}
