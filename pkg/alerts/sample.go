package alerts

import (
	"context"

	"github.com/user/scanhub/pkg/engine"
)

// TestScanInfo and TestFindings drive the test alert exposed by the CLI and API.
var TestScanInfo = ScanInfo{ScanID: "test-scan-123", Category: engine.CategorySAST, Target: "test_application.py"}

func TestFindings() []engine.Finding {
	return []engine.Finding{
		{
			Tool:        "semgrep",
			Severity:    engine.SeverityCritical,
			Category:    "SQL Injection",
			Description: "Potential SQL injection vulnerability detected in user input handling",
			Location:    "app.py:42",
			Remediation: "Use parameterized queries",
		},
		{
			Tool:        "semgrep",
			Severity:    engine.SeverityHigh,
			Category:    "XSS",
			Description: "Cross-site scripting vulnerability in template rendering",
			Location:    "templates/user.html:15",
			Remediation: "Escape user input properly",
		},
	}
}

// SendTest sends the canned test alert through every channel.
func (e *Engine) SendTest(ctx context.Context) Outcome {
	return e.Alert(ctx, TestScanInfo, TestFindings())
}
