package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/ai"
	"github.com/amishk599/jobagent/internal/config"
	"github.com/amishk599/jobagent/internal/digest"
	"github.com/amishk599/jobagent/internal/filter"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/notifier"
	"github.com/amishk599/jobagent/internal/pipeline"
	"github.com/amishk599/jobagent/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobagent",
	Short: "Job agent: collect, score and digest job postings",
	Long: "jobagent collects postings from Danish job boards, company career pages and ATS boards, " +
		"scores them against a candidate profile with an LLM, and sends a digest of the relevant ones.",
	// Default to `run` so that `jobagent` with no args performs one cycle,
	// which is what a cron entry or systemd timer invokes.
	RunE:         runRun,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBAGENT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addRunFlags(rootCmd)
}

// resolveConfigPath applies the lookup order:
// explicit path arg > JOBAGENT_CONFIG env var > "./config.yaml".
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("JOBAGENT_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

// loadConfig resolves the config path, loads any .env next to it, and parses it.
func loadConfig(path string) (*config.Config, error) {
	path = resolveConfigPath(path)
	if err := config.LoadEnv(path); err != nil {
		return nil, err
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// mustLoad loads the config and logger the way every command starts, exiting
// on a bad config.
func mustLoad() (*config.Config, *slog.Logger) {
	logger := setupLogger(debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	return store.NewSQLiteStore(cfg.Database.Path)
}

// setupNotifier fans out to every configured channel.
func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	multi := notifier.NewMultiNotifier(logger)
	for _, ch := range cfg.Notification.Channels {
		switch ch {
		case config.ChannelSlack:
			logger.Info("using slack notifier")
			multi.Add(ch, notifier.NewSlackNotifier(cfg.Notification.Slack.WebhookURL, httpClient, logger))
		case config.ChannelEmail:
			e := cfg.Notification.Email
			logger.Info("using email notifier", "to", e.To)
			multi.Add(ch, notifier.NewEmailNotifier(e.BaseURL, e.APIKey, e.From, splitRecipients(e.To), httpClient, logger))
		default:
			multi.Add(ch, notifier.NewLogNotifier(logger))
		}
	}
	return multi
}

// splitRecipients splits a comma separated address list.
func splitRecipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// setupScorer returns the LLM scorer, or a no-op scorer when AI is disabled.
func setupScorer(cfg *config.Config, logger *slog.Logger) model.RelevanceScorer {
	if !cfg.AI.Enabled {
		logger.Info("AI scoring disabled, jobs get a neutral score")
		return ai.NewNopScorer()
	}

	// The scorer bounds each call with ai.timeout; the client has no deadline of its own.
	httpClient := &http.Client{}
	var provider ai.LLMProvider
	switch cfg.AI.Provider {
	case config.ProviderAnthropic:
		provider = ai.NewAnthropicProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	default:
		provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	}
	logger.Info("AI scoring enabled", "provider", cfg.AI.Provider, "model", cfg.AI.Model, "timeout", cfg.AI.Timeout.String())
	return ai.NewLLMScorer(provider, ai.RelevanceTemplate, cfg.AI.DescriptionLimit, cfg.AI.Timeout, logger)
}

func newPolicy(cfg *config.Config) *digest.Policy {
	return digest.NewPolicy(cfg.Digest.MinRelevance, cfg.Digest.OverrideKeywords)
}

// buildPipeline wires every stage from the config. sources are built by the caller
// so it can release the headless browser when done.
func buildPipeline(cfg *config.Config, sources []model.SourceCollector, jobStore model.JobStore, scorer model.RelevanceScorer, n model.Notifier, logger *slog.Logger, opts ...pipeline.Option) *pipeline.Pipeline {
	// Search terms are applied by each source's own query; the shared
	// filter only enforces exclusions and locations.
	jobFilter := filter.NewTermFilter(nil, cfg.Filters.ExcludeTitle, cfg.Filters.Locations, cfg.Filters.ExcludeLocations)
	opts = append([]pipeline.Option{pipeline.WithFilter(jobFilter)}, opts...)

	return pipeline.New(sources, jobStore, scorer, newPolicy(cfg), n, pipeline.Config{
		Terms:         cfg.SearchTerms,
		Profile:       cfg.Profile,
		ScoreLimit:    cfg.AI.BatchLimit,
		FeedbackLimit: cfg.AI.FeedbackLimit,
		MinRelevance:  cfg.Digest.MinRelevance,
		Concurrency:   cfg.Sources.Concurrency,
	}, logger, opts...)
}

func logConfig(cfg *config.Config, logger *slog.Logger) {
	logger.Info("config loaded",
		"sources", cfg.Sources.EnabledSources(),
		"search_terms", len(cfg.SearchTerms),
		"database", cfg.Database.Path,
		"channels", cfg.Notification.Channels,
		"min_relevance", cfg.Digest.MinRelevance,
	)
}
