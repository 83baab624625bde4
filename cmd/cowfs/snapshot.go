package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage named snapshots of the live tree",
}

var snapshotDescription string

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Pin the current version of every live file under name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		snap, err := eng.CreateSnapshot(ctx, args[0], snapshotDescription)
		if err != nil {
			return err
		}
		fmt.Printf("Created snapshot %q (%d files) at %s\n", snap.Name, snap.FileCount, snap.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		snaps, err := eng.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintf(w, "NAME\tCREATED\tFILES\tDESCRIPTION\n")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"), s.FileCount, s.Description)
		}
		return w.Flush()
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the files pinned by a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		entries, err := eng.ShowSnapshot(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintf(w, "PATH\tSIZE\tHASH\n")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, humanSize(e.SizeBytes), e.ObjectHash[:12])
		}
		return w.Flush()
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a snapshot (the pinned versions remain subject to normal GC)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := eng.DeleteSnapshot(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted snapshot %q\n", args[0])
		return nil
	},
}

var snapshotKeepNew bool

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Roll the live tree back to a named snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		result, err := eng.RestoreSnapshot(ctx, args[0], snapshotKeepNew)
		if err != nil {
			return err
		}
		fmt.Printf("Restored snapshot %q: %d files restored (%d undeleted), %d files soft-deleted\n",
			args[0], result.FilesRestored, result.FilesUndeleted, result.FilesSoftDeleted)
		if result.EntriesSkippedPruned > 0 {
			fmt.Printf("%d pinned entries skipped: their historical version was already pruned by gc\n", result.EntriesSkippedPruned)
		}
		return nil
	},
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotDescription, "description", "", "optional snapshot description")
	snapshotRestoreCmd.Flags().BoolVar(&snapshotKeepNew, "keep-new", false, "keep files created since the snapshot instead of soft-deleting them")

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
}
