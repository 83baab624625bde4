package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cowfs/cowfs/internal/engine"
)

var (
	gcKeepLast int
	gcBefore   string
	gcDryRun   bool
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Garbage-collect pruned versions and orphaned objects",
	Args:  cobra.NoArgs,
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().IntVar(&gcKeepLast, "keep-last", 0, "keep only the N most recent versions of each file")
	gcCmd.Flags().StringVar(&gcBefore, "before", "", "prune non-current versions older than this RFC3339 timestamp")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be reclaimed without mutating anything")
}

func runGC(cmd *cobra.Command, args []string) error {
	if gcKeepLast > 0 && gcBefore != "" {
		return fmt.Errorf("--keep-last and --before are mutually exclusive")
	}
	storageDir, err := resolveStorage(storageFlag)
	if err != nil {
		return err
	}

	policy := engine.GCPolicy{DryRun: gcDryRun}
	if gcKeepLast > 0 {
		policy.KeepLast = &gcKeepLast
	}
	if gcBefore != "" {
		t, err := time.Parse(time.RFC3339, gcBefore)
		if err != nil {
			return fmt.Errorf("invalid --before timestamp: %w", err)
		}
		policy.Before = &t
	}

	ctx := context.Background()
	eng, closeMeta, err := openEngine(ctx, storageDir)
	if err != nil {
		return err
	}
	defer closeMeta()

	result, err := eng.GC(ctx, policy)
	if err != nil {
		return err
	}

	label := "Garbage collection"
	if result.DryRun {
		label = "Garbage collection (dry run)"
	}
	fmt.Printf("%s complete:\n", label)
	fmt.Printf("  Versions pruned:    %d\n", result.VersionsPruned)
	fmt.Printf("  Objects processed:  %d\n", result.ProcessedObjects)
	fmt.Printf("  Objects skipped:    %d (still referenced)\n", result.SkippedReferenced)
	fmt.Printf("  Orphaned objects:   %d\n", result.OrphanedObjects)
	fmt.Printf("  Reclaimed bytes:    %s\n", humanSize(result.ReclaimedBytes))
	return nil
}
