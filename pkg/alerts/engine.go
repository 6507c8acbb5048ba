// Package alerts decides when a scan result warrants a notification and
// delivers it to every configured channel.
package alerts

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/logging"
)

// Destinations is the explicit channel configuration. Empty URLs leave a channel unconfigured.
type Destinations struct {
	DiscordWebhook string
	SlackWebhook   string
	// Console, when non-nil, also prints every alert.
	Console io.Writer
	// Timeout bounds each webhook request. Zero means 10 seconds.
	Timeout time.Duration
}

// DispatchResult reports per-channel delivery.
type DispatchResult struct {
	Sent     bool              `json:"alert_sent"`
	Channels map[string]bool   `json:"channels"`
	Skipped  []string          `json:"skipped,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Outcome is the result of Alert: the decision plus, when sent, the dispatch details.
type Outcome struct {
	DispatchResult
	Reason  string   `json:"reason,omitempty"`
	Payload *Payload `json:"alert_data,omitempty"`
}

// Engine formats and dispatches alerts.
type Engine struct {
	channels []Channel
	now      func() time.Time
	log      *logrus.Entry
}

// New creates an engine over explicit channels.
func New(channels ...Channel) *Engine {
	return &Engine{
		channels: channels,
		now:      time.Now,
		log:      logging.Component("alerts"),
	}
}

// NewFromDestinations builds the Discord, Slack and optional console channels.
func NewFromDestinations(d Destinations) *Engine {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	channels := []Channel{
		&Discord{URL: d.DiscordWebhook, Client: client},
		&Slack{URL: d.SlackWebhook, Client: client},
	}
	if d.Console != nil {
		channels = append(channels, &Console{Out: d.Console})
	}
	return New(channels...)
}

// WithClock replaces the clock used for payload timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Channels returns the names of all channels and whether each is configured.
func (e *Engine) Channels() map[string]bool {
	out := make(map[string]bool, len(e.channels))
	for _, ch := range e.channels {
		out[ch.Name()] = ch.Configured()
	}
	return out
}

// Dispatch sends p to every configured channel concurrently. A failing channel
// never prevents delivery to the others.
func (e *Engine) Dispatch(ctx context.Context, p Payload) DispatchResult {
	res := DispatchResult{
		Channels: make(map[string]bool),
		Errors:   make(map[string]string),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, ch := range e.channels {
		if !ch.Configured() {
			e.log.WithField("channel", ch.Name()).Warn("Channel not configured, skipping")
			res.Skipped = append(res.Skipped, ch.Name())
			continue
		}

		ch := ch
		g.Go(func() error {
			err := ch.Send(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			entry := e.log.WithField("channel", ch.Name())
			if err != nil {
				entry.WithError(err).Error("Failed to send alert")
				res.Channels[ch.Name()] = false
				res.Errors[ch.Name()] = err.Error()
				return nil
			}
			entry.Info("Alert sent")
			res.Channels[ch.Name()] = true
			res.Sent = true
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(res.Skipped)
	return res
}

// Alert applies the alert policy to findings and dispatches a payload when warranted.
func (e *Engine) Alert(ctx context.Context, info ScanInfo, findings []engine.Finding) Outcome {
	if !ShouldAlert(engine.Summarize(findings)) {
		e.log.WithField("scan_id", info.ScanID).Info("No critical vulnerabilities found, skipping alert")
		return Outcome{
			DispatchResult: DispatchResult{Channels: map[string]bool{}},
			Reason:         "No critical vulnerabilities",
		}
	}

	p := Format(info, findings, e.now())
	res := e.Dispatch(ctx, p)
	e.log.WithFields(logrus.Fields{"scan_id": info.ScanID, "channels": res.Channels}).Info("Alert results")

	out := Outcome{DispatchResult: res, Payload: &p}
	if !res.Sent {
		out.Reason = "No channel delivered the alert"
	}
	return out
}
