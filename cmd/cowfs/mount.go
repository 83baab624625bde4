package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cowfs/cowfs/internal/fuseadapter"
	"github.com/cowfs/cowfs/internal/health"
	"github.com/cowfs/cowfs/internal/metrics"
	"github.com/cowfs/cowfs/internal/statusapi"
	"github.com/cowfs/cowfs/pkg/logging"
)

var (
	mountHashAlgo  string
	mountAllowOther bool
	mountReadOnly  bool
	mountStatusAddr string
)

var mountCmd = &cobra.Command{
	Use:   "mount <storage-dir> <mount-point>",
	Short: "Mount the COWFS filesystem",
	Args:  cobra.ExactArgs(2),
	RunE:  runMount,
}

func init() {
	mountCmd.Flags().StringVar(&mountHashAlgo, "hash-algo", "sha256", "content hash algorithm")
	mountCmd.Flags().BoolVar(&mountAllowOther, "allow-other", false, "allow other users to access the mount")
	mountCmd.Flags().BoolVar(&mountReadOnly, "read-only", false, "mount read-only")
	mountCmd.Flags().StringVar(&mountStatusAddr, "status-addr", "127.0.0.1:9090", "health/metrics HTTP listen address, empty to disable")
}

func runMount(cmd *cobra.Command, args []string) error {
	storageDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	mountPoint, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}

	if err := validateEmptyMountPoint(mountPoint); err != nil {
		return err
	}
	if err := ensureStorage(storageDir, mountHashAlgo); err != nil {
		return err
	}

	lock, err := acquireLock(storageDir)
	if err != nil {
		return err
	}
	defer lock.release()

	ctx := context.Background()
	eng, closeMeta, err := openEngine(ctx, storageDir)
	if err != nil {
		return err
	}
	defer closeMeta()

	log := logging.Default()
	tracker := health.NewTracker(health.DefaultConfig())
	collector := metrics.NewCollector(metrics.DefaultConfig())

	fsCfg := fuseadapter.DefaultConfig()
	fsCfg.AllowOther = mountAllowOther
	fsCfg.ReadOnly = mountReadOnly

	fsys := fuseadapter.New(eng, fsCfg, storageDir, log, tracker, collector)
	manager := fuseadapter.NewMountManager(fsys, mountPoint, log)

	var statusSrv *statusapi.Server
	if mountStatusAddr != "" {
		statusCfg := statusapi.DefaultConfig()
		statusCfg.Addr = mountStatusAddr
		statusSrv = statusapi.NewServer(statusCfg, tracker, collector, log)
		statusSrv.StartBackground()
		defer statusSrv.Shutdown(context.Background())
	}

	if err := manager.Mount(); err != nil {
		return err
	}
	fmt.Printf("COWFS mounted: %s -> %s\n", storageDir, mountPoint)
	fmt.Println("Press Ctrl+C to unmount")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nCaught interrupt, unmounting...")
		_ = manager.Unmount()
	}()

	manager.Wait()
	fmt.Println("COWFS unmounted.")
	return nil
}

func validateEmptyMountPoint(mountPoint string) error {
	info, err := os.Stat(mountPoint)
	if os.IsNotExist(err) {
		return os.MkdirAll(mountPoint, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", mountPoint)
	}
	entries, err := os.ReadDir(mountPoint)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s is not empty", mountPoint)
	}
	return nil
}

var umountCmd = &cobra.Command{
	Use:   "umount <mount-point>",
	Short: "Unmount the COWFS filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountPoint, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		var lastErr error
		for _, helper := range []string{"fusermount3", "fusermount"} {
			if _, lookErr := exec.LookPath(helper); lookErr != nil {
				continue
			}
			out, runErr := exec.Command(helper, "-u", mountPoint).CombinedOutput()
			if runErr != nil {
				lastErr = fmt.Errorf("%s: %s", runErr, string(out))
				continue
			}
			fmt.Printf("Unmounted: %s\n", mountPoint)
			return nil
		}
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("fusermount not found; is FUSE installed?")
	},
}
