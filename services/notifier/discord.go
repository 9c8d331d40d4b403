package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/extract"
	"pokewatch/stockworker/internal/status"
	errs "pokewatch/stockworker/pkg/errors"
)

const (
	colorGreen  = 0x2ECC71 // in stock
	colorRed    = 0xE74C3C // out of stock
	colorOrange = 0xE67E22 // preorder
	colorGrey   = 0x95A5A6 // unknown
)

// Discord allows at most 10 embeds per webhook message.
const maxEmbedsPerMessage = 10

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

var _ Notifier = (*DiscordNotifier)(nil)

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NotifyChanges sends one embed per stock change, split across messages
// when a batch exceeds the Discord embed cap.
func (d *DiscordNotifier) NotifyChanges(ctx context.Context, events []detect.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	embeds := make([]discordEmbed, 0, len(events))
	for i := range events {
		embeds = append(embeds, buildChangeEmbed(&events[i]))
	}
	return d.postChunked(ctx, embeds)
}

// NotifyDiscoveries announces newly discovered products.
func (d *DiscordNotifier) NotifyDiscoveries(ctx context.Context, records []extract.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	embeds := make([]discordEmbed, 0, len(records))
	for i := range records {
		embeds = append(embeds, buildDiscoveryEmbed(&records[i]))
	}
	return d.postChunked(ctx, embeds)
}

func (d *DiscordNotifier) postChunked(ctx context.Context, embeds []discordEmbed) error {
	for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(embeds))
		payload := discordWebhookPayload{Embeds: embeds[start:end]}
		if err := d.post(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func buildChangeEmbed(e *detect.ChangeEvent) discordEmbed {
	title := e.Name
	if title == "" {
		title = e.SKU
	}

	embed := discordEmbed{
		Title:       fmt.Sprintf("Stock Alert: %s", title),
		URL:         e.URL,
		Color:       statusColor(e.NewStatus),
		Description: changeSummary(e),
		Fields: []discordEmbedField{
			{Name: "Status", Value: string(e.NewStatus), Inline: true},
			{Name: "Was", Value: string(e.OldStatus), Inline: true},
			{Name: "Seller", Value: e.SellerID, Inline: true},
		},
	}

	if e.Price != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   "Price",
			Value:  fmt.Sprintf("$%.2f", *e.Price),
			Inline: true,
		})
	}

	return embed
}

func buildDiscoveryEmbed(rec *extract.ProductRecord) discordEmbed {
	embed := discordEmbed{
		Title: fmt.Sprintf("New Product: %s", rec.Name),
		URL:   rec.URL,
		Color: statusColor(rec.Status),
		Fields: []discordEmbedField{
			{Name: "Status", Value: string(rec.Status), Inline: true},
			{Name: "Seller", Value: rec.SellerID, Inline: true},
		},
	}

	if rec.Price != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   "Price",
			Value:  fmt.Sprintf("$%.2f", *rec.Price),
			Inline: true,
		})
	}

	return embed
}

func changeSummary(e *detect.ChangeEvent) string {
	switch e.NewStatus {
	case status.InStock:
		return "Back in stock!"
	case status.OutOfStock:
		return "No longer available."
	case status.Preorder:
		return "Open for preorder."
	default:
		return ""
	}
}

func statusColor(s status.Status) int {
	switch s {
	case status.InStock:
		return colorGreen
	case status.OutOfStock:
		return colorRed
	case status.Preorder:
		return colorOrange
	default:
		return colorGrey
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.NewNotifier("marshaling discord payload", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return errs.NewNotifier("creating discord request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errs.NewNotifier("sending discord webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errs.NewNotifier("discord rate limited (429)", nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return errs.NewNotifier(fmt.Sprintf("discord returned %d (body unreadable)", resp.StatusCode), nil)
		}
		return errs.NewNotifier(fmt.Sprintf("discord returned %d: %s", resp.StatusCode, respBody), nil)
	}

	return nil
}
