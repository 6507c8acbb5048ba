package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/scanhub/pkg/adk"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (webhooks, providers, models, keys)",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			fmt.Printf("Error encoding config: %v\n", err)
			return
		}
		fmt.Print(string(data))
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
	},
}

var setWebhookCmd = &cobra.Command{
	Use:   "set-webhook",
	Short: "Set the Discord and/or Slack webhook URL",
	Run: func(cmd *cobra.Command, args []string) {
		discord, _ := cmd.Flags().GetString("discord")
		slack, _ := cmd.Flags().GetString("slack")
		if !cmd.Flags().Changed("discord") && !cmd.Flags().Changed("slack") {
			fmt.Println("Error: --discord or --slack is required (pass an empty value to clear)")
			return
		}

		cfg, err := loadFileConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		if cmd.Flags().Changed("discord") {
			cfg.Alerts.DiscordWebhook = strings.TrimSpace(discord)
		}
		if cmd.Flags().Changed("slack") {
			cfg.Alerts.SlackWebhook = strings.TrimSpace(slack)
		}

		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		for name, ok := range newAlerter(cfg).Channels() {
			fmt.Printf("%s configured: %v\n", name, ok)
		}
	},
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Manually set API key for a provider",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			fmt.Println("Error: --provider and --key are required")
			return
		}

		cfg, err := loadFileConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("API key saved for provider: %s\n", provider)
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Manually set the active provider and model",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := loadFileConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if provider != "" {
			cfg.AI.SelectedProvider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.AI.SelectedModel = model
		}

		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("Active configuration updated: Provider=%s, Model=%s\n", cfg.AI.SelectedProvider, cfg.AI.SelectedModel)
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println("Error loading config:", err)
			return
		}

		provider := cfg.AI.SelectedProvider
		if provider == "" {
			fmt.Println("No provider selected. Please run 'scanhub config setup'.")
			return
		}
		apiKey := cfg.GetAPIKey(provider)
		if apiKey == "" {
			fmt.Printf("No API key found for %s.\n", provider)
			return
		}

		fmt.Printf("Fetching models for %s...\n", provider)
		ctx := context.Background()
		p, err := adk.NewProvider(ctx, provider, apiKey, "")
		if err != nil {
			fmt.Println("Error initializing provider:", err)
			return
		}
		if closer, ok := p.(interface{ Close() }); ok {
			defer closer.Close()
		}

		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Println("Error fetching models:", err)
			return
		}

		fmt.Printf("\nAvailable Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.AI.SelectedModel {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
	},
}

func init() {
	providers := strings.Join(adk.Providers, ", ")

	setWebhookCmd.Flags().String("discord", "", "Discord webhook URL")
	setWebhookCmd.Flags().String("slack", "", "Slack webhook URL")

	setKeyCmd.Flags().StringP("provider", "p", "", "Provider ("+providers+")")
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider ("+providers+")")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setWebhookCmd)
	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(configCmd)
}
