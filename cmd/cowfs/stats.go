package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
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

	s, err := eng.Stats(ctx)
	if err != nil {
		return err
	}
	marker, err := readFormatMarker(storageDir)
	if err != nil {
		return err
	}
	hashAlgo := "sha256"
	if marker != nil {
		hashAlgo = marker.HashAlgo
	}

	savings := s.LogicalSizeBytes - s.ActualSizeBytes
	pct := 0.0
	if s.LogicalSizeBytes > 0 {
		pct = float64(savings) / float64(s.LogicalSizeBytes) * 100
	}

	if statsJSON {
		out := map[string]interface{}{
			"total_files":        s.TotalFiles,
			"total_versions":     s.TotalVersions,
			"total_objects":      s.TotalObjects,
			"logical_size_bytes": s.LogicalSizeBytes,
			"actual_size_bytes":  s.ActualSizeBytes,
			"orphaned_objects":   s.OrphanedObjects,
			"dedup_savings_bytes": savings,
			"dedup_percentage":   roundTo1(pct),
			"hash_algo":          hashAlgo,
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Println("COWFS Storage Statistics")
	fmt.Printf("  Hash algorithm:   %s\n", hashAlgo)
	fmt.Printf("  Logical size:     %s\n", humanSize(s.LogicalSizeBytes))
	fmt.Printf("  Actual size:      %s\n", humanSize(s.ActualSizeBytes))
	fmt.Printf("  Dedup savings:    %s (%.1f%%)\n", humanSize(savings), pct)
	fmt.Printf("  Total files:      %d\n", s.TotalFiles)
	fmt.Printf("  Total versions:   %d\n", s.TotalVersions)
	fmt.Printf("  Total objects:    %d\n", s.TotalObjects)
	fmt.Printf("  Orphaned objects: %d\n", s.OrphanedObjects)
	return nil
}

func roundTo1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
