package adk

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/user/scanhub/pkg/logging"
)

// Tool represents an executable action for the agent
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error)
	Schema() map[string]interface{} // JSON schema for arguments
}

// ToolCall represents a request from the LLM to execute a tool
type ToolCall struct {
	ToolName string
	Args     map[string]interface{}
}

// Message represents a chat message
type Message struct {
	Role    string // "user", "model", "system", "function"
	Content string
}

// LLMProvider defines the interface for different AI models
type LLMProvider interface {
	GenerateResponse(ctx context.Context, history []Message, tools []Tool) (string, *ToolCall, error)
	ListModels(ctx context.Context) ([]string, error)
}

// MaxToolCalls bounds the tool round trips of a single Chat turn.
const MaxToolCalls = 8

// Agent is the core ADK agent
type Agent struct {
	llm          LLMProvider
	tools        map[string]Tool
	history      []Message
	systemPrompt string
	log          *logrus.Entry
}

// NewAgent creates a new agent with the given LLM provider
func NewAgent(llm LLMProvider) *Agent {
	return &Agent{
		llm:   llm,
		tools: make(map[string]Tool),
		log:   logging.Component("agent"),
	}
}

// RegisterTool adds a tool to the agent's registry
func (a *Agent) RegisterTool(t Tool) {
	a.tools[t.Name()] = t
}

// SetSystemPrompt sets the instructions sent ahead of the conversation.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.systemPrompt = prompt
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []Message {
	return append([]Message(nil), a.history...)
}

func (a *Agent) toolList() []Tool {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]Tool, 0, len(names))
	for _, n := range names {
		list = append(list, a.tools[n])
	}
	return list
}

func (a *Agent) conversation() []Message {
	if a.systemPrompt == "" {
		return a.history
	}
	return append([]Message{{Role: "system", Content: a.systemPrompt}}, a.history...)
}

// Chat sends a message to the agent and returns the response
func (a *Agent) Chat(ctx context.Context, input string, progress func(string)) (string, error) {
	a.history = append(a.history, Message{Role: "user", Content: input})

	// Generate response (loop for tool calls)
	for calls := 0; ; calls++ {
		if calls > MaxToolCalls {
			return "", fmt.Errorf("agent exceeded %d tool calls without answering", MaxToolCalls)
		}

		respText, toolCall, err := a.llm.GenerateResponse(ctx, a.conversation(), a.toolList())
		if err != nil {
			return "", err
		}

		// If the model just replied with text, we are done
		if toolCall == nil {
			a.history = append(a.history, Message{Role: "model", Content: respText})
			return respText, nil
		}

		a.log.WithFields(logrus.Fields{"tool": toolCall.ToolName, "args": toolCall.Args}).Debug("Executing tool")

		// Record the model's intent to call the tool
		a.history = append(a.history, Message{
			Role:    "model",
			Content: fmt.Sprintf("I will call tool %s with args %v", toolCall.ToolName, toolCall.Args),
		})

		tool, exists := a.tools[toolCall.ToolName]
		if !exists {
			a.history = append(a.history, Message{Role: "function", Content: fmt.Sprintf("Error: Tool %s not found", toolCall.ToolName)})
			continue
		}

		if progress != nil {
			progress(fmt.Sprintf("Running %s", tool.Name()))
		}
		result, err := tool.Execute(ctx, toolCall.Args, progress)
		if err != nil {
			result = fmt.Sprintf("Error executing tool: %v", err)
		}

		a.history = append(a.history, Message{
			Role:    "function",
			Content: fmt.Sprintf("Tool %s returned: %s", toolCall.ToolName, result),
		})
	}
}
