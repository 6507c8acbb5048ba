package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/alerts"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert channel utilities",
}

var alertTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample alert to every configured channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		outcome := newAlerter(cfg).SendTest(cmd.Context())
		printOutcome(outcome)
		if !outcome.Sent {
			return fmt.Errorf("test alert was not delivered to any channel")
		}
		return nil
	},
}

func printOutcome(o alerts.Outcome) {
	if o.Reason != "" {
		fmt.Println(o.Reason)
	}
	names := make([]string, 0, len(o.Channels))
	for name := range o.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if o.Channels[name] {
			fmt.Printf("  %-8s sent\n", name)
		} else {
			fmt.Printf("  %-8s failed: %s\n", name, o.Errors[name])
		}
	}
	for _, name := range o.Skipped {
		fmt.Printf("  %-8s not configured\n", name)
	}
}

func init() {
	alertCmd.AddCommand(alertTestCmd)
	rootCmd.AddCommand(alertCmd)
}
