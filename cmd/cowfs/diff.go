package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	diffFromIndex  int
	diffFromBefore string
	diffToIndex    int
	diffToBefore   string
)

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Compare two versions of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().IntVar(&diffFromIndex, "from-index", 0, "1-based version index for the 'from' side")
	diffCmd.Flags().StringVar(&diffFromBefore, "from-before", "", "latest version at or before this RFC3339 timestamp for the 'from' side")
	diffCmd.Flags().IntVar(&diffToIndex, "to-index", 0, "1-based version index for the 'to' side")
	diffCmd.Flags().StringVar(&diffToBefore, "to-before", "", "latest version at or before this RFC3339 timestamp for the 'to' side")
}

func runDiff(cmd *cobra.Command, args []string) error {
	storageDir, err := resolveStorage(storageFlag)
	if err != nil {
		return err
	}
	from, err := parseSelector(diffFromIndex, diffFromBefore)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := parseSelector(diffToIndex, diffToBefore)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	ctx := context.Background()
	eng, closeMeta, err := openEngine(ctx, storageDir)
	if err != nil {
		return err
	}
	defer closeMeta()

	result, err := eng.Diff(ctx, args[0], from, to)
	if err != nil {
		return err
	}

	if result.Identical {
		fmt.Printf("%s: versions %d and %d are identical (%s)\n", args[0], result.FromVersionID, result.ToVersionID, result.FromHash[:12])
		return nil
	}

	fmt.Printf("%s: version %d (%s, %s) -> version %d (%s, %s)\n",
		args[0],
		result.FromVersionID, result.FromHash[:12], humanSize(result.FromSize),
		result.ToVersionID, result.ToHash[:12], humanSize(result.ToSize),
	)

	fromData, toData, err := eng.DiffContent(ctx, result)
	if err != nil {
		return err
	}
	if isText(fromData) && isText(toData) {
		printLineDiff(fromData, toData)
	}
	return nil
}

func isText(data []byte) bool {
	return !bytes.ContainsRune(data, 0)
}

func printLineDiff(from, to []byte) {
	fromLines := bytes.Split(from, []byte("\n"))
	toLines := bytes.Split(to, []byte("\n"))
	max := len(fromLines)
	if len(toLines) > max {
		max = len(toLines)
	}
	for i := 0; i < max; i++ {
		var a, b []byte
		if i < len(fromLines) {
			a = fromLines[i]
		}
		if i < len(toLines) {
			b = toLines[i]
		}
		if bytes.Equal(a, b) {
			continue
		}
		if i < len(fromLines) {
			fmt.Printf("- %s\n", a)
		}
		if i < len(toLines) {
			fmt.Printf("+ %s\n", b)
		}
	}
}
