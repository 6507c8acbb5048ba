package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/user/scanhub/pkg/engine"
)

// Channel is one notification destination.
type Channel interface {
	Name() string
	// Configured reports whether a destination is set. Unconfigured channels are skipped.
	Configured() bool
	Send(ctx context.Context, p Payload) error
}

// configuredURL treats empty and template placeholder URLs as absent.
func configuredURL(url string) bool {
	url = strings.TrimSpace(url)
	return url != "" && !strings.Contains(url, "YOUR_") && !strings.Contains(url, "YOUR/")
}

// postJSON sends body to url and requires a 2xx answer.
func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", engine.ErrDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", engine.ErrDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrDispatch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %d: %s", engine.ErrDispatch, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
