package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/engine"
)

var scanTimeout time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan <sast|sca|docker|secrets> <target>",
	Short: "Run a security scan and print its report",
	Long: `Queues a scan job and waits for it to finish.

  sast     semgrep over a source directory
  sca      trivy filesystem scan of a project's dependencies
  docker   trivy scan of a container image reference
  secrets  gitleaks over a directory or repository`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() {
			// a timed out wait leaves the scan running; do not drain it
			closeCtx := context.Background()
			if scanTimeout > 0 {
				var cancel context.CancelFunc
				closeCtx, cancel = context.WithTimeout(closeCtx, time.Second)
				defer cancel()
			}
			a.Close(closeCtx)
		}()

		ctx := cmd.Context()
		id, err := a.manager.Submit(ctx, strings.ToLower(args[0]), args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Scan %s queued (%s on %s)\n", id, args[0], args[1])

		if scanTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, scanTimeout)
			defer cancel()
		}
		job, err := a.manager.Wait(ctx, id, 500*time.Millisecond)
		if err != nil {
			return fmt.Errorf("waiting for scan %s: %w", id, err)
		}

		fmt.Println(engine.Report(job))
		if job.Status == engine.StatusFailed {
			return fmt.Errorf("scan %s failed: %s", id, job.Message)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Give up waiting after this long")
	rootCmd.AddCommand(scanCmd)
}
