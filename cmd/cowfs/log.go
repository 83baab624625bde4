package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the recent activity log across the whole storage directory",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "maximum number of events to show")
}

func runLog(cmd *cobra.Command, args []string) error {
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

	events, err := eng.Activity(ctx, logLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tACTION\tPATH\tHASH\n")
	for _, e := range events {
		hash := e.ObjectHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Path, hash)
	}
	return w.Flush()
}
