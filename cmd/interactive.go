package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/adk"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start the interactive agent session",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		providerName := cfg.AI.SelectedProvider
		if providerName == "" {
			providerName = "gemini" // Default
		}

		apiKey := cfg.GetAPIKey(providerName)
		if apiKey == "" {
			fmt.Println("Error: API Key not found.")
			fmt.Println("Please run 'scanhub config setup' or set GOOGLE_API_KEY.")
			return
		}

		ctx := context.Background()
		modelName := cfg.AI.SelectedModel
		fmt.Printf("Connecting to %s (Model: %s)...\n", providerName, modelName)

		provider, err := adk.NewProvider(ctx, providerName, apiKey, modelName)
		if err != nil {
			fmt.Printf("Error creating AI provider: %v\n", err)
			return
		}
		if closer, ok := provider.(interface{ Close() }); ok {
			defer closer.Close()
		}

		a, err := newApp(cfg)
		if err != nil {
			fmt.Printf("Error starting scan engine: %v\n", err)
			return
		}
		defer a.Close(context.Background())

		agent := adk.NewScanAgent(provider, a.manager, a.repo)

		// Start chat loop
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("\n---------------------------------------------------------")
		fmt.Println("scanhub agent initialized. Ready for commands.")
		fmt.Println("Example: 'Run a secrets scan on ./my-repo and wait for it'")
		fmt.Println("Example: 'Compare my last two dependency scans'")
		fmt.Println("Type 'quit' or 'exit' to stop.")
		fmt.Println("---------------------------------------------------------")

		for {
			fmt.Print("\n> ")
			if !scanner.Scan() {
				break
			}
			input := scanner.Text()
			if input == "quit" || input == "exit" {
				break
			}
			if input == "" {
				continue
			}

			fmt.Print("Agent thinking... ")
			resp, err := agent.Chat(ctx, input, func(msg string) {
				// Clear current line and print progress
				fmt.Printf("\r\033[K[Progress]: %s\nAgent thinking... ", msg)
			})
			// Clear thinking line
			fmt.Print("\r\033[K")

			if err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Printf("\n[Agent]: %s\n", resp)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
