package alerts

import (
	"context"
	"net/http"
	"time"
)

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Slack posts an attachment to a Slack incoming webhook.
type Slack struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

func (s *Slack) Name() string     { return "slack" }
func (s *Slack) Configured() bool { return configuredURL(s.URL) }

func (s *Slack) Send(ctx context.Context, p Payload) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return postJSON(ctx, s.Client, s.URL, slackBody(p, now()))
}

func slackBody(p Payload, now time.Time) slackMessage {
	att := slackAttachment{
		Color: "danger",
		Fields: []slackField{
			{Title: "Description", Value: p.Description},
			{Title: "Severities", Value: p.SeveritySummary, Short: true},
			{Title: "Scan ID", Value: p.ScanID, Short: true},
		},
		Footer: "scanhub",
		Ts:     now.Unix(),
	}
	if p.FindingsDetail != "" {
		att.Fields = append(att.Fields, slackField{
			Title: "Detected Vulnerabilities",
			Value: truncate(p.FindingsDetail, SlackExcerptCap),
		})
	}
	return slackMessage{Text: p.Title, Attachments: []slackAttachment{att}}
}
