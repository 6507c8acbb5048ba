package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/adk"
)

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Run: func(cmd *cobra.Command, args []string) {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("Welcome to the scanhub Setup Wizard")
		fmt.Println("-----------------------------------")

		cfg, err := loadFileConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		// 1. Alert webhooks
		fmt.Println("Step 1: Alert webhooks (leave empty to keep the current value)")
		if v := prompt(scanner, "Discord webhook URL > "); v != "" {
			cfg.Alerts.DiscordWebhook = v
		}
		if v := prompt(scanner, "Slack webhook URL > "); v != "" {
			cfg.Alerts.SlackWebhook = v
		}

		// 2. AI provider for the interactive agent
		fmt.Printf("\nStep 2: API key for the interactive agent (%s, empty to skip)\n", strings.Join(adk.Providers, ", "))
		provider := adk.Providers[0]
		apiKey := prompt(scanner, "> ")

		if apiKey != "" {
			// 3. Fetch Models
			fmt.Println("\nStep 3: Validating key and fetching available models...")
			ctx := context.Background()

			selectedModel := cfg.AI.SelectedModel
			models, err := listModels(ctx, provider, apiKey)
			if err != nil {
				fmt.Printf("Warning: Could not fetch models from API: %v\n", err)
				if v := prompt(scanner, "Model name (e.g. 'gemini-pro') > "); v != "" {
					selectedModel = v
				}
			} else if len(models) > 0 {
				fmt.Printf("Successfully retrieved %d models.\n", len(models))
				for i, m := range models {
					fmt.Printf("%d. %s\n", i+1, m)
				}
				selIdx, err := strconv.Atoi(prompt(scanner, "Select Model (number) > "))
				if err != nil || selIdx < 1 || selIdx > len(models) {
					fmt.Println("Invalid selection. Using first available model.")
					selectedModel = models[0]
				} else {
					selectedModel = models[selIdx-1]
				}
			}

			cfg.AI.SelectedProvider = provider
			cfg.AI.SelectedModel = selectedModel
			cfg.SetAPIKey(provider, apiKey)
		}

		// 4. Save Configuration
		fmt.Println("\nStep 4: Saving Configuration...")
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}

		fmt.Println("-----------------------------------")
		fmt.Println("Setup Complete!")
		for name, ok := range newAlerter(cfg).Channels() {
			fmt.Printf("Alert channel %-8s configured: %v\n", name, ok)
		}
		fmt.Printf("Provider: %s\n", cfg.AI.SelectedProvider)
		fmt.Printf("Model:    %s\n", cfg.AI.SelectedModel)
		fmt.Println("Try 'scanhub alert test' or 'scanhub interactive'")
	},
}

func listModels(ctx context.Context, provider, apiKey string) ([]string, error) {
	p, err := adk.NewProvider(ctx, provider, apiKey, "")
	if err != nil {
		return nil, err
	}
	if closer, ok := p.(interface{ Close() }); ok {
		defer closer.Close()
	}
	return p.ListModels(ctx)
}

func init() {
	configCmd.AddCommand(setupCmd)
}
