package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxSlackBlocks is Slack's per-message block limit.
const maxSlackBlocks = 50

// SlackNotifier sends the digest to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts digests to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the digest as Block Kit messages grouped by sector. A digest
// larger than one message is split; any failed part fails the digest.
func (s *SlackNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	payloads := buildPayloads(jobs)
	for i, p := range payloads {
		if i > 0 {
			if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
				return fmt.Errorf("post to slack: %w", err)
			}
		}
		if err := s.sendMessage(ctx, p); err != nil {
			return fmt.Errorf("slack digest part %d/%d: %w", i+1, len(payloads), err)
		}
	}
	s.logger.Info("slack digest sent", "jobs", len(jobs), "messages", len(payloads))
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}

	if status == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		if err := sleepCtx(ctx, time.Duration(secs)*time.Second); err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Fields    []slackText   `json:"fields,omitempty"`
	Elements  []slackText   `json:"elements,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style,omitempty"`
}

// buildPayloads renders the digest and splits it into messages within
// Slack's block limit. Every message carries the subject as fallback text.
func buildPayloads(jobs []model.Job) []slackPayload {
	subject := digestSubject(jobs)
	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: subject},
	}}

	for _, g := range groupBySector(jobs) {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s* (%d)", g.Name, len(g.Jobs))},
		})
		for _, j := range g.Jobs {
			blocks = append(blocks, jobBlock(j))
		}
		blocks = append(blocks, slackBlock{Type: "divider"})
	}

	var payloads []slackPayload
	for len(blocks) > 0 {
		n := min(len(blocks), maxSlackBlocks)
		payloads = append(payloads, slackPayload{Text: subject, Blocks: blocks[:n]})
		blocks = blocks[n:]
	}
	return payloads
}

func jobBlock(j model.Job) slackBlock {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s · %s\n*Score:* %s", escapeSlack(j.Title), escapeSlack(j.Company), escapeSlack(j.Location), j.ScoreLabel())
	if j.Deadline != "" {
		fmt.Fprintf(&b, "   *Frist:* %s", escapeSlack(j.Deadline))
	}
	if j.RelevanceReasoning != "" {
		fmt.Fprintf(&b, "\n%s", escapeSlack(j.RelevanceReasoning))
	}
	for _, h := range j.Highlights {
		fmt.Fprintf(&b, "\n✅ %s", escapeSlack(h))
	}
	for _, c := range j.Concerns {
		fmt.Fprintf(&b, "\n⚠️ %s", escapeSlack(c))
	}

	block := slackBlock{
		Type: "section",
		Text: &slackText{Type: "mrkdwn", Text: truncateText(b.String(), 3000)},
	}
	if j.URL != "" {
		block.Accessory = &slackElement{
			Type:  "button",
			Text:  slackText{Type: "plain_text", Text: "Se opslag"},
			URL:   j.URL,
			Style: "primary",
		}
	}
	return block
}

// escapeSlack escapes the control characters of Slack mrkdwn.
func escapeSlack(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
