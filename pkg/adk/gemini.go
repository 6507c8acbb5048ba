package adk

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, apiKey string, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-pro"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	iter := g.client.ListModels(ctx)
	var names []string
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		// Only list models that support content generation (rough filter)
		if strings.Contains(m.Name, "gemini") {
			// m.Name is like "models/gemini-pro", we usually want just "gemini-pro"
			names = append(names, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return names, nil
}

// functionDeclarations converts tools into Gemini function declarations.
func functionDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	var defs []*genai.FunctionDeclaration
	for _, t := range tools {
		defs = append(defs, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  toSchema(t.Schema()),
		})
	}
	return defs
}

// toSchema translates a JSON-schema style map into a genai.Schema.
func toSchema(m map[string]interface{}) *genai.Schema {
	if m == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	s := &genai.Schema{}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	default:
		s.Type = genai.TypeObject
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := m["enum"].([]string); ok {
		s.Enum = enum
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	}
	if items, ok := m["items"].(map[string]interface{}); ok {
		s.Items = toSchema(items)
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	return s
}

// toContents splits history into the system instruction and chat contents.
func toContents(history []Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var cs []*genai.Content
	for _, msg := range history {
		role := "user"
		switch msg.Role {
		case "system":
			system = &genai.Content{Parts: []genai.Part{genai.Text(msg.Content)}}
			continue
		case "model":
			role = "model"
		case "function":
			// Convert function output to user message so the model sees it
			role = "user"
		}

		cs = append(cs, &genai.Content{
			Parts: []genai.Part{
				genai.Text(msg.Content),
			},
			Role: role,
		})
	}
	return system, cs
}

func (g *GeminiProvider) GenerateResponse(ctx context.Context, history []Message, tools []Tool) (string, *ToolCall, error) {
	if defs := functionDeclarations(tools); len(defs) > 0 {
		g.model.Tools = []*genai.Tool{{FunctionDeclarations: defs}}
	}

	system, cs := toContents(history)
	g.model.SystemInstruction = system
	if len(cs) == 0 {
		return "", nil, fmt.Errorf("empty history")
	}

	session := g.model.StartChat()
	session.History = cs[:len(cs)-1]
	lastMsg := cs[len(cs)-1]

	resp, err := session.SendMessage(ctx, lastMsg.Parts...)
	if err != nil {
		return "", nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil, fmt.Errorf("no response candidates")
	}

	var responseText string
	var toolCall *ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			toolCall = &ToolCall{
				ToolName: funcCall.Name,
				Args:     funcCall.Args,
			}
		}
		if text, ok := part.(genai.Text); ok {
			responseText += string(text)
		}
	}

	if toolCall == nil && responseText == "" {
		return "", nil, fmt.Errorf("no response")
	}
	return responseText, toolCall, nil
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}
