package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cowfs/cowfs/internal/engine"
)

var (
	restoreIndex  int
	restoreBefore string
)

var restoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore a file to a prior version, appended as a new current version",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().IntVar(&restoreIndex, "index", 0, "1-based version index to restore, as shown by history")
	restoreCmd.Flags().StringVar(&restoreBefore, "before", "", "restore the latest version at or before this RFC3339 timestamp")
}

func parseSelector(index int, before string) (engine.RestoreSelector, error) {
	var sel engine.RestoreSelector
	switch {
	case index > 0 && before != "":
		return sel, fmt.Errorf("--index and --before are mutually exclusive")
	case index > 0:
		sel.Index = &index
	case before != "":
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return sel, fmt.Errorf("invalid --before timestamp: %w", err)
		}
		sel.Before = &t
	default:
		return sel, fmt.Errorf("one of --index or --before is required")
	}
	return sel, nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	storageDir, err := resolveStorage(storageFlag)
	if err != nil {
		return err
	}
	sel, err := parseSelector(restoreIndex, restoreBefore)
	if err != nil {
		return err
	}

	ctx := context.Background()
	eng, closeMeta, err := openEngine(ctx, storageDir)
	if err != nil {
		return err
	}
	defer closeMeta()

	v, err := eng.Restore(ctx, args[0], sel)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %s to version %s (%s)\n", args[0], v.ObjectHash[:12], humanSize(v.SizeBytes))
	return nil
}
