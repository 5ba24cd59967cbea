package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobagent/internal/model"
)

// Config is the root configuration for the job agent.
type Config struct {
	SearchTerms  []string
	Filters      FilterConfig
	Profile      model.Profile
	Sources      SourcesConfig
	AI           AIConfig
	Digest       DigestConfig
	Notification NotificationConfig
	Database     DatabaseConfig
	Schedule     ScheduleConfig
	Metrics      MetricsConfig
}

// FilterConfig holds the term and location filters applied to every posting.
type FilterConfig struct {
	ExcludeTitle     []string
	Locations        []string
	ExcludeLocations []string
}

// Render modes for page-based sources.
const (
	RenderHTTP    = "http"
	RenderBrowser = "browser"
)

// SourcesConfig holds the shared fetch settings and one block per source.
type SourcesConfig struct {
	UserAgent     string
	Timeout       time.Duration // per-request timeout
	MaxRetries    int           // retries on transient fetch failures
	Concurrency   int           // max sources collected at once; 0 = all
	BrowserSettle time.Duration // wait after navigation before reading the DOM

	Jobindex   JobindexConfig
	Jobnet     JobnetConfig
	Jobunivers JobuniversConfig
	Careers    CareersConfig
	Adzuna     AdzunaConfig
	Greenhouse BoardSourceConfig
	Lever      BoardSourceConfig
	Ashby      BoardSourceConfig
	Gem        BoardSourceConfig
	Workday    WorkdayConfig
}

// JobindexConfig configures the jobindex.dk collector.
type JobindexConfig struct {
	Enabled  bool
	Rate     float64 // requests per second
	Regions  []string
	MaxPages int
}

// JobnetConfig configures the jobnet.dk collector.
type JobnetConfig struct {
	Enabled  bool
	Rate     float64
	MaxPages int
	PageSize int
	Render   string // "http" or "browser"
}

// JobuniversConfig configures the jobunivers.dk collector.
type JobuniversConfig struct {
	Enabled      bool
	Rate         float64
	Locations    []string
	FetchDetails bool
}

// CompanyConfig describes one company careers page.
type CompanyConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Sector string `yaml:"sector"`
}

// CareersConfig configures the company careers page collector.
type CareersConfig struct {
	Enabled   bool
	Rate      float64
	Render    string
	Companies []CompanyConfig
}

// AdzunaConfig configures the Adzuna search API collector.
type AdzunaConfig struct {
	Enabled   bool
	Rate      float64
	AppID     string
	AppKey    string
	Country   string
	Locations []string
	MaxPages  int
}

// BoardConfig names one ATS job board.
type BoardConfig struct {
	Token  string `yaml:"token"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
}

// BoardSourceConfig configures one ATS collector (greenhouse, lever, ashby, gem).
type BoardSourceConfig struct {
	Enabled bool
	Rate    float64
	Boards  []BoardConfig
}

// WorkdayConfig configures the Workday collector. Each site's token is its
// CXS endpoint URL.
type WorkdayConfig struct {
	Enabled  bool
	Rate     float64
	MaxPages int
	Sites    []BoardConfig
}

// AI providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// AIConfig controls relevance scoring.
type AIConfig struct {
	Enabled          bool
	Provider         string        // "openai" or "anthropic"
	BaseURL          string        // defaults per provider
	Model            string        // defaults per provider
	APIKey           string        // expanded from env var by Load
	Timeout          time.Duration // per-request timeout
	DescriptionLimit int           // runes of description sent in the prompt
	BatchLimit       int           // max jobs scored per run
	FeedbackLimit    int           // likes and dislikes each included in the prompt
}

// DigestConfig controls which analyzed jobs are notified.
type DigestConfig struct {
	MinRelevance int
	// OverrideKeywords is nil when unset (use defaults) and empty when
	// explicitly disabled.
	OverrideKeywords []string
}

// Notification channels.
const (
	ChannelLog   = "log"
	ChannelSlack = "slack"
	ChannelEmail = "email"
)

// NotificationConfig controls which notifiers receive the digest.
type NotificationConfig struct {
	Channels []string
	Slack    SlackConfig
	Email    EmailConfig
}

// SlackConfig holds the incoming webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// EmailConfig holds the Resend settings.
type EmailConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

// HasChannel reports whether name is among the configured channels.
func (n NotificationConfig) HasChannel(name string) bool {
	for _, c := range n.Channels {
		if c == name {
			return true
		}
	}
	return false
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ScheduleConfig drives daemon mode.
type ScheduleConfig struct {
	Cron       string // standard 5-field cron expression
	RunOnStart bool
}

// MetricsConfig controls metrics exposure.
type MetricsConfig struct {
	Addr     string // listen address for /metrics in daemon mode
	Textfile string // node-exporter textfile written after a one-shot run
}

const (
	defaultUserAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultEmailFrom        = "Job Agent <onboarding@resend.dev>"
	defaultResendBaseURL    = "https://api.resend.com"
	defaultCron             = "0 7 * * *"
	defaultDatabasePath     = "jobs.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	SearchTerms  []string          `yaml:"search_terms"`
	Filters      rawFilterConfig   `yaml:"filters"`
	Profile      model.Profile     `yaml:"profile"`
	ProfileFile  string            `yaml:"profile_file"`
	Sources      rawSourcesConfig  `yaml:"sources"`
	AI           rawAIConfig       `yaml:"ai"`
	Digest       rawDigestConfig   `yaml:"digest"`
	Notification rawNotification   `yaml:"notification"`
	Database     rawDatabaseConfig `yaml:"database"`
	Schedule     rawScheduleConfig `yaml:"schedule"`
	Metrics      rawMetricsConfig  `yaml:"metrics"`
}

type rawFilterConfig struct {
	ExcludeTitle     []string `yaml:"exclude_title"`
	Locations        []string `yaml:"locations"`
	ExcludeLocations []string `yaml:"exclude_locations"`
}

type rawSourcesConfig struct {
	UserAgent     string `yaml:"user_agent"`
	Timeout       string `yaml:"timeout"`
	MaxRetries    *int   `yaml:"max_retries"`
	Concurrency   int    `yaml:"concurrency"`
	BrowserSettle string `yaml:"browser_settle"`

	Jobindex struct {
		Enabled  bool     `yaml:"enabled"`
		Rate     *float64 `yaml:"rate"`
		Regions  []string `yaml:"regions"`
		MaxPages int      `yaml:"max_pages"`
	} `yaml:"jobindex"`

	Jobnet struct {
		Enabled  bool     `yaml:"enabled"`
		Rate     *float64 `yaml:"rate"`
		MaxPages int      `yaml:"max_pages"`
		PageSize int      `yaml:"page_size"`
		Render   string   `yaml:"render"`
	} `yaml:"jobnet"`

	Jobunivers struct {
		Enabled      bool     `yaml:"enabled"`
		Rate         *float64 `yaml:"rate"`
		Locations    []string `yaml:"locations"`
		FetchDetails *bool    `yaml:"fetch_details"`
	} `yaml:"jobunivers"`

	Careers struct {
		Enabled   bool            `yaml:"enabled"`
		Rate      *float64        `yaml:"rate"`
		Render    string          `yaml:"render"`
		Companies []CompanyConfig `yaml:"companies"`
	} `yaml:"careers"`

	Adzuna struct {
		Enabled   bool     `yaml:"enabled"`
		Rate      *float64 `yaml:"rate"`
		AppID     string   `yaml:"app_id"`
		AppKey    string   `yaml:"app_key"`
		Country   string   `yaml:"country"`
		Locations []string `yaml:"locations"`
		MaxPages  int      `yaml:"max_pages"`
	} `yaml:"adzuna"`

	Greenhouse rawBoardSource `yaml:"greenhouse"`
	Lever      rawBoardSource `yaml:"lever"`
	Ashby      rawBoardSource `yaml:"ashby"`
	Gem        rawBoardSource `yaml:"gem"`

	Workday struct {
		Enabled  bool          `yaml:"enabled"`
		Rate     *float64      `yaml:"rate"`
		MaxPages int           `yaml:"max_pages"`
		Sites    []BoardConfig `yaml:"sites"`
	} `yaml:"workday"`
}

type rawBoardSource struct {
	Enabled bool          `yaml:"enabled"`
	Rate    *float64      `yaml:"rate"`
	Boards  []BoardConfig `yaml:"boards"`
}

type rawAIConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Provider         string `yaml:"provider"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	APIKey           string `yaml:"api_key"`
	Timeout          string `yaml:"timeout"`
	DescriptionLimit int    `yaml:"description_limit"`
	BatchLimit       int    `yaml:"batch_limit"`
	FeedbackLimit    *int   `yaml:"feedback_limit"`
}

type rawDigestConfig struct {
	MinRelevance     *int     `yaml:"min_relevance"`
	OverrideKeywords []string `yaml:"override_keywords"`
}

type rawNotification struct {
	Channels []string    `yaml:"channels"`
	Slack    SlackConfig `yaml:"slack"`
	Email    EmailConfig `yaml:"email"`
}

type rawDatabaseConfig struct {
	Path string `yaml:"path"`
}

type rawScheduleConfig struct {
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type rawMetricsConfig struct {
	Addr     string `yaml:"addr"`
	Textfile string `yaml:"textfile"`
}

// LoadEnv loads a .env file from the config file's directory and from the
// working directory, whichever exist. Variables already set in the
// environment are not overridden.
func LoadEnv(configPath string) error {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); dir != "." {
		candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
	}
	for _, p := range candidates {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	profile := raw.Profile
	if raw.ProfileFile != "" {
		if raw.Profile.PromptText() != (model.Profile{}).PromptText() {
			return nil, fmt.Errorf("profile and profile_file are mutually exclusive")
		}
		profilePath := raw.ProfileFile
		if !filepath.IsAbs(profilePath) {
			profilePath = filepath.Join(filepath.Dir(path), profilePath)
		}
		profile, err = loadProfile(profilePath)
		if err != nil {
			return nil, err
		}
	}

	sources, err := buildSources(raw.Sources)
	if err != nil {
		return nil, err
	}

	ai, err := buildAI(raw.AI)
	if err != nil {
		return nil, err
	}

	minRelevance := 60
	if raw.Digest.MinRelevance != nil {
		minRelevance = *raw.Digest.MinRelevance
	}

	channels := raw.Notification.Channels
	if len(channels) == 0 {
		channels = []string{ChannelLog}
	}
	email := raw.Notification.Email
	if email.From == "" {
		email.From = defaultEmailFrom
	}
	if email.BaseURL == "" {
		email.BaseURL = defaultResendBaseURL
	}

	dbPath := raw.Database.Path
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}

	cronSpec := raw.Schedule.Cron
	if cronSpec == "" {
		cronSpec = defaultCron
	}

	cfg := &Config{
		SearchTerms: raw.SearchTerms,
		Filters: FilterConfig{
			ExcludeTitle:     raw.Filters.ExcludeTitle,
			Locations:        raw.Filters.Locations,
			ExcludeLocations: raw.Filters.ExcludeLocations,
		},
		Profile: profile,
		Sources: sources,
		AI:      ai,
		Digest: DigestConfig{
			MinRelevance:     minRelevance,
			OverrideKeywords: raw.Digest.OverrideKeywords,
		},
		Notification: NotificationConfig{
			Channels: channels,
			Slack:    raw.Notification.Slack,
			Email:    email,
		},
		Database: DatabaseConfig{Path: dbPath},
		Schedule: ScheduleConfig{
			Cron:       cronSpec,
			RunOnStart: raw.Schedule.RunOnStart,
		},
		Metrics: MetricsConfig{
			Addr:     raw.Metrics.Addr,
			Textfile: raw.Metrics.Textfile,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadProfile(path string) (model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p model.Profile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &p); err != nil {
		return model.Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func rateOr(rate *float64, def float64) float64 {
	if rate == nil {
		return def
	}
	return *rate
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func buildSources(raw rawSourcesConfig) (SourcesConfig, error) {
	timeout, err := parseDuration("sources.timeout", raw.Timeout, 30*time.Second)
	if err != nil {
		return SourcesConfig{}, err
	}
	settle, err := parseDuration("sources.browser_settle", raw.BrowserSettle, 2*time.Second)
	if err != nil {
		return SourcesConfig{}, err
	}

	maxRetries := 2
	if raw.MaxRetries != nil {
		maxRetries = *raw.MaxRetries
	}
	userAgent := raw.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	regions := raw.Jobindex.Regions
	if len(regions) == 0 {
		regions = []string{"1", "3", "4"}
	}
	jobuniversLocations := raw.Jobunivers.Locations
	if len(jobuniversLocations) == 0 {
		jobuniversLocations = []string{"Hovedstaden", "Midtjylland", "Syddanmark"}
	}
	fetchDetails := true
	if raw.Jobunivers.FetchDetails != nil {
		fetchDetails = *raw.Jobunivers.FetchDetails
	}
	country := raw.Adzuna.Country
	if country == "" {
		country = "dk"
	}

	return SourcesConfig{
		UserAgent:     userAgent,
		Timeout:       timeout,
		MaxRetries:    maxRetries,
		Concurrency:   raw.Concurrency,
		BrowserSettle: settle,
		Jobindex: JobindexConfig{
			Enabled:  raw.Jobindex.Enabled,
			Rate:     rateOr(raw.Jobindex.Rate, 0.5),
			Regions:  regions,
			MaxPages: orDefault(raw.Jobindex.MaxPages, 10),
		},
		Jobnet: JobnetConfig{
			Enabled:  raw.Jobnet.Enabled,
			Rate:     rateOr(raw.Jobnet.Rate, 0.5),
			MaxPages: orDefault(raw.Jobnet.MaxPages, 10),
			PageSize: orDefault(raw.Jobnet.PageSize, 20),
			Render:   renderOr(raw.Jobnet.Render),
		},
		Jobunivers: JobuniversConfig{
			Enabled:      raw.Jobunivers.Enabled,
			Rate:         rateOr(raw.Jobunivers.Rate, 0.5),
			Locations:    jobuniversLocations,
			FetchDetails: fetchDetails,
		},
		Careers: CareersConfig{
			Enabled:   raw.Careers.Enabled,
			Rate:      rateOr(raw.Careers.Rate, 0.3),
			Render:    renderOr(raw.Careers.Render),
			Companies: raw.Careers.Companies,
		},
		Adzuna: AdzunaConfig{
			Enabled:   raw.Adzuna.Enabled,
			Rate:      rateOr(raw.Adzuna.Rate, 1),
			AppID:     raw.Adzuna.AppID,
			AppKey:    raw.Adzuna.AppKey,
			Country:   country,
			Locations: raw.Adzuna.Locations,
			MaxPages:  orDefault(raw.Adzuna.MaxPages, 5),
		},
		Greenhouse: buildBoardSource(raw.Greenhouse),
		Lever:      buildBoardSource(raw.Lever),
		Ashby:      buildBoardSource(raw.Ashby),
		Gem:        buildBoardSource(raw.Gem),
		Workday: WorkdayConfig{
			Enabled:  raw.Workday.Enabled,
			Rate:     rateOr(raw.Workday.Rate, 0.5),
			MaxPages: orDefault(raw.Workday.MaxPages, 5),
			Sites:    raw.Workday.Sites,
		},
	}, nil
}

func buildBoardSource(raw rawBoardSource) BoardSourceConfig {
	return BoardSourceConfig{
		Enabled: raw.Enabled,
		Rate:    rateOr(raw.Rate, 1),
		Boards:  raw.Boards,
	}
}

func renderOr(mode string) string {
	if mode == "" {
		return RenderHTTP
	}
	return strings.ToLower(mode)
}

func buildAI(raw rawAIConfig) (AIConfig, error) {
	timeout, err := parseDuration("ai.timeout", raw.Timeout, 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(raw.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	baseURL, modelName := raw.BaseURL, raw.Model
	switch provider {
	case ProviderOpenAI:
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		if modelName == "" {
			modelName = defaultOpenAIModel
		}
	case ProviderAnthropic:
		if baseURL == "" {
			baseURL = defaultAnthropicBaseURL
		}
		if modelName == "" {
			modelName = defaultAnthropicModel
		}
	}

	feedbackLimit := 5
	if raw.FeedbackLimit != nil {
		feedbackLimit = *raw.FeedbackLimit
	}

	return AIConfig{
		Enabled:          raw.Enabled,
		Provider:         provider,
		BaseURL:          baseURL,
		Model:            modelName,
		APIKey:           raw.APIKey,
		Timeout:          timeout,
		DescriptionLimit: orDefault(raw.DescriptionLimit, 2000),
		BatchLimit:       orDefault(raw.BatchLimit, 50),
		FeedbackLimit:    feedbackLimit,
	}, nil
}

// EnabledSources lists the names of the enabled sources in a fixed order.
func (s SourcesConfig) EnabledSources() []string {
	var names []string
	add := func(name string, enabled bool) {
		if enabled {
			names = append(names, name)
		}
	}
	add("jobindex", s.Jobindex.Enabled)
	add("jobnet", s.Jobnet.Enabled)
	add("jobunivers", s.Jobunivers.Enabled)
	add("careers", s.Careers.Enabled)
	add("adzuna", s.Adzuna.Enabled)
	add("greenhouse", s.Greenhouse.Enabled)
	add("lever", s.Lever.Enabled)
	add("ashby", s.Ashby.Enabled)
	add("gem", s.Gem.Enabled)
	add("workday", s.Workday.Enabled)
	return names
}

func validate(cfg *Config) error {
	src := cfg.Sources
	if len(src.EnabledSources()) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	termDriven := src.Jobindex.Enabled || src.Jobnet.Enabled || src.Jobunivers.Enabled ||
		src.Adzuna.Enabled || src.Greenhouse.Enabled || src.Lever.Enabled || src.Ashby.Enabled ||
		src.Gem.Enabled || src.Workday.Enabled
	if termDriven && len(cfg.SearchTerms) == 0 {
		return fmt.Errorf("search_terms must not be empty")
	}
	if src.Timeout <= 0 {
		return fmt.Errorf("sources.timeout must be positive, got %v", src.Timeout)
	}
	if src.MaxRetries < 0 {
		return fmt.Errorf("sources.max_retries must not be negative, got %d", src.MaxRetries)
	}
	if src.Concurrency < 0 {
		return fmt.Errorf("sources.concurrency must not be negative, got %d", src.Concurrency)
	}

	rates := map[string]float64{
		"jobindex":   src.Jobindex.Rate,
		"jobnet":     src.Jobnet.Rate,
		"jobunivers": src.Jobunivers.Rate,
		"careers":    src.Careers.Rate,
		"adzuna":     src.Adzuna.Rate,
		"greenhouse": src.Greenhouse.Rate,
		"lever":      src.Lever.Rate,
		"ashby":      src.Ashby.Rate,
		"gem":        src.Gem.Rate,
		"workday":    src.Workday.Rate,
	}
	for name, rate := range rates {
		if rate < 0 {
			return fmt.Errorf("sources.%s.rate must not be negative, got %v", name, rate)
		}
	}

	for name, mode := range map[string]string{"jobnet": src.Jobnet.Render, "careers": src.Careers.Render} {
		if mode != RenderHTTP && mode != RenderBrowser {
			return fmt.Errorf("sources.%s.render must be %q or %q, got %q", name, RenderHTTP, RenderBrowser, mode)
		}
	}

	if src.Careers.Enabled {
		if len(src.Careers.Companies) == 0 {
			return fmt.Errorf("sources.careers.companies must not be empty when careers is enabled")
		}
		for i, c := range src.Careers.Companies {
			if c.Name == "" || c.URL == "" {
				return fmt.Errorf("sources.careers.companies[%d]: name and url are required", i)
			}
		}
	}

	if src.Adzuna.Enabled && (src.Adzuna.AppID == "" || src.Adzuna.AppKey == "") {
		return fmt.Errorf("sources.adzuna.app_id and app_key are required when adzuna is enabled")
	}

	boardSources := map[string]BoardSourceConfig{
		"greenhouse": src.Greenhouse,
		"lever":      src.Lever,
		"ashby":      src.Ashby,
		"gem":        src.Gem,
	}
	for name, b := range boardSources {
		if !b.Enabled {
			continue
		}
		if len(b.Boards) == 0 {
			return fmt.Errorf("sources.%s.boards must not be empty when %s is enabled", name, name)
		}
		for i, board := range b.Boards {
			if board.Token == "" {
				return fmt.Errorf("sources.%s.boards[%d]: token is required", name, i)
			}
		}
	}

	if src.Workday.Enabled {
		if len(src.Workday.Sites) == 0 {
			return fmt.Errorf("sources.workday.sites must not be empty when workday is enabled")
		}
		for i, site := range src.Workday.Sites {
			if !strings.HasPrefix(site.Token, "https://") && !strings.HasPrefix(site.Token, "http://") {
				return fmt.Errorf("sources.workday.sites[%d]: token must be the site's CXS URL, got %q", i, site.Token)
			}
		}
	}

	if cfg.AI.Enabled {
		if cfg.AI.Provider != ProviderOpenAI && cfg.AI.Provider != ProviderAnthropic {
			return fmt.Errorf("ai.provider must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, cfg.AI.Provider)
		}
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.BaseURL == "" {
			return fmt.Errorf("ai.base_url (or a known ai.provider) is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
		if cfg.AI.Timeout <= 0 {
			return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
		}
	}
	if cfg.AI.BatchLimit < 0 || cfg.AI.FeedbackLimit < 0 {
		return fmt.Errorf("ai.batch_limit and ai.feedback_limit must not be negative")
	}

	if cfg.Digest.MinRelevance < 0 || cfg.Digest.MinRelevance > 100 {
		return fmt.Errorf("digest.min_relevance must be between 0 and 100, got %d", cfg.Digest.MinRelevance)
	}

	for _, ch := range cfg.Notification.Channels {
		switch ch {
		case ChannelLog:
		case ChannelSlack:
			url := cfg.Notification.Slack.WebhookURL
			if url == "" {
				return fmt.Errorf("notification.slack.webhook_url is required when the slack channel is enabled")
			}
			if !strings.HasPrefix(url, "https://hooks.slack.com/") {
				return fmt.Errorf("notification.slack.webhook_url must start with https://hooks.slack.com/")
			}
		case ChannelEmail:
			e := cfg.Notification.Email
			if e.APIKey == "" {
				return fmt.Errorf("notification.email.api_key is required when the email channel is enabled")
			}
			if e.To == "" {
				return fmt.Errorf("notification.email.to is required when the email channel is enabled")
			}
		default:
			return fmt.Errorf("notification.channels: unknown channel %q", ch)
		}
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		return fmt.Errorf("parse schedule.cron %q: %w", cfg.Schedule.Cron, err)
	}

	return nil
}
