package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/jobs"
)

var (
	listOffset   int
	listLimit    int
	diffShowSame int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect stored scan jobs",
}

// withRepository opens the configured repository for the duration of fn.
func withRepository(fn func(repo jobs.Repository) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	return fn(repo)
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo jobs.Repository) error {
			list, err := repo.ListJobs(cmd.Context(), listOffset, listLimit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No scans found.")
				return nil
			}
			fmt.Printf("%-36s  %-7s  %-9s  %8s  %-20s  %s\n", "ID", "TYPE", "STATUS", "FINDINGS", "CREATED", "TARGET")
			for _, j := range list {
				fmt.Printf("%-36s  %-7s  %-9s  %8d  %-20s  %s\n",
					j.ID, j.Category, j.Status, j.FindingsCount(), j.CreatedAt.Format("2006-01-02 15:04:05"), j.Target)
			}
			return nil
		})
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the report of one scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo jobs.Repository) error {
			job, err := repo.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(engine.Report(job))
			return nil
		})
	},
}

var jobsDiffCmd = &cobra.Command{
	Use:   "diff <baseline-id> <current-id>",
	Short: "Compare the findings of two scans",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo jobs.Repository) error {
			base, err := repo.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cur, err := repo.GetJob(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			for _, j := range []*engine.ScanJob{base, cur} {
				if j.Status != engine.StatusCompleted {
					return fmt.Errorf("scan %s is %s, only completed scans can be compared", j.ID, j.Status)
				}
			}

			fmt.Printf("Scan Comparison (%s vs %s):\n", cur.ID, base.ID)
			fmt.Println("--------------------------------------------------")
			fmt.Print(engine.DiffReport(engine.CompareFindings(base.Findings, cur.Findings), diffShowSame))
			return nil
		})
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo jobs.Repository) error {
			sr, ok := repo.(jobs.StatsRepository)
			if !ok {
				return fmt.Errorf("repository does not support statistics")
			}
			stats, err := sr.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Total scans: %d\n", stats.TotalScans)
			for _, c := range engine.Categories() {
				fmt.Printf("  %-7s %d\n", c, stats.ScanTypes[c])
			}
			fmt.Printf("Severity distribution: %s\n", engine.SummaryLine(stats.SeverityDistribution))
			if len(stats.RecentScans) > 0 {
				fmt.Println("Recent scans:")
				for _, r := range stats.RecentScans {
					fmt.Printf("  %s  %-7s %-9s %3d findings  %s\n", r.ID, r.Category, r.Status, r.FindingsCount, r.Target)
				}
			}
			return nil
		})
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip this many scans")
	jobsListCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of scans")
	jobsDiffCmd.Flags().IntVar(&diffShowSame, "unchanged", 10, "Maximum unchanged findings to list")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsDiffCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}
