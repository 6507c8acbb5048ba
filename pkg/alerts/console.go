package alerts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5F5F")).
			Padding(0, 1)
)

// Console prints alerts to a terminal. It is configured whenever it has a writer.
type Console struct {
	Out io.Writer
	mu  sync.Mutex
}

func (c *Console) Name() string     { return "console" }
func (c *Console) Configured() bool { return c.Out != nil }

func (c *Console) Send(_ context.Context, p Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.Out, RenderConsole(p))
	return err
}

// RenderConsole renders a payload as a boxed terminal block.
func RenderConsole(p Payload) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(p.Title))
	sb.WriteString("\n")
	sb.WriteString(p.Description)
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Severities: ") + p.SeveritySummary + "\n")
	sb.WriteString(labelStyle.Render("Scan ID:    ") + p.ScanID + "\n")
	sb.WriteString(labelStyle.Render("Timestamp:  ") + p.Timestamp)
	if p.FindingsDetail != "" {
		sb.WriteString("\n\n")
		sb.WriteString(detailStyle.Render(strings.TrimRight(p.FindingsDetail, "\n")))
	}
	return boxStyle.Render(sb.String())
}
