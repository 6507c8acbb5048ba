package alerts

import (
	"context"
	"net/http"
)

const discordRed = 15158332

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Discord posts an embed to a Discord webhook.
type Discord struct {
	URL    string
	Client *http.Client
}

func (d *Discord) Name() string     { return "discord" }
func (d *Discord) Configured() bool { return configuredURL(d.URL) }

func (d *Discord) Send(ctx context.Context, p Payload) error {
	return postJSON(ctx, d.Client, d.URL, discordBody(p))
}

func discordBody(p Payload) discordMessage {
	embed := discordEmbed{
		Title:       p.Title,
		Description: p.Description,
		Color:       discordRed,
		Fields: []discordField{
			{Name: "Severity Summary", Value: p.SeveritySummary},
			{Name: "Scan ID", Value: p.ScanID, Inline: true},
			{Name: "Timestamp", Value: p.Timestamp, Inline: true},
		},
	}
	embed.Footer.Text = "scanhub"
	if p.FindingsDetail != "" {
		embed.Fields = append(embed.Fields, discordField{
			Name:  "Vulnerability Details",
			Value: truncate(p.FindingsDetail, DiscordExcerptCap),
		})
	}
	return discordMessage{Embeds: []discordEmbed{embed}}
}
