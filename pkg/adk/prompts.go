package adk

import (
	_ "embed"

	"github.com/user/scanhub/pkg/jobs"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

// GetSystemPrompt returns the default system prompt for the agent
func GetSystemPrompt() string {
	return systemPrompt
}

// NewScanAgent returns an agent with the scan tools registered and the scan prompt set.
func NewScanAgent(llm LLMProvider, svc ScanService, repo jobs.Repository) *Agent {
	agent := NewAgent(llm)
	for _, t := range ScanTools(svc, repo) {
		agent.RegisterTool(t)
	}
	agent.SetSystemPrompt(GetSystemPrompt())
	return agent
}
