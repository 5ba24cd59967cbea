package notifier

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

// Ensure EmailNotifier implements model.Notifier.
var _ model.Notifier = (*EmailNotifier)(nil)

// DefaultResendURL is the Resend API base URL.
const DefaultResendURL = "https://api.resend.com"

var errNoAPIKey = errors.New("no resend api key configured")

//go:embed templates/digest.html
var digestTemplateRaw string

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"scoreColor": scoreColor,
}).Parse(digestTemplateRaw))

// EmailNotifier renders the digest as HTML and sends it through the Resend API.
type EmailNotifier struct {
	baseURL    string
	apiKey     string
	from       string
	to         []string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewEmailNotifier returns a notifier sending from `from` to the given
// recipients. An empty baseURL uses DefaultResendURL.
func NewEmailNotifier(baseURL, apiKey, from string, to []string, httpClient *http.Client, logger *slog.Logger) *EmailNotifier {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	return &EmailNotifier{
		baseURL:    baseURL,
		apiKey:     apiKey,
		from:       from,
		to:         to,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type digestData struct {
	Subject string
	Date    string
	Total   int
	Strong  int
	Groups  []sectorGroup
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Notify sends one digest e-mail. A missing API key is a failure.
func (e *EmailNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if e.apiKey == "" {
		return errNoAPIKey
	}

	subject := digestSubject(jobs)
	html, err := renderDigest(subject, jobs, e.now())
	if err != nil {
		return err
	}

	id, err := e.send(ctx, resendRequest{From: e.from, To: e.to, Subject: subject, HTML: html})
	if err != nil {
		return err
	}
	e.logger.Info("digest email sent", "jobs", len(jobs), "to", e.to, "id", id)
	return nil
}

func renderDigest(subject string, jobs []model.Job, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := digestTemplate.Execute(&buf, digestData{
		Subject: subject,
		Date:    now.Format("2. January 2006"),
		Total:   len(jobs),
		Strong:  strongMatches(jobs),
		Groups:  groupBySector(jobs),
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func (e *EmailNotifier) send(ctx context.Context, msg resendRequest) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read email response: %w", err)
	}

	var rr resendResponse
	_ = json.Unmarshal(respBytes, &rr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := rr.Message
		if msg == "" {
			msg = string(respBytes)
		}
		return "", &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("resend: %s", msg)}
	}
	return rr.ID, nil
}

func scoreColor(score int) string {
	switch {
	case score >= StrongMatchScore:
		return "#1a7f37"
	case score >= 60:
		return "#9a6700"
	default:
		return "#6e7781"
	}
}
