package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/adapter"
	"github.com/amishk599/jobagent/internal/config"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/ratelimit"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all sources with their status and rate.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// sourceSet is the collectors of one run plus the resources they hold.
type sourceSet struct {
	collectors []model.SourceCollector
	browser    *adapter.BrowserGetter
}

// Close releases the headless browser if any source started it.
func (s *sourceSet) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
}

// buildSources creates one collector per enabled source. Each source gets its
// own limiter so that a slow site never paces another.
func buildSources(cfg *config.Config, logger *slog.Logger) *sourceSet {
	src := cfg.Sources
	set := &sourceSet{}

	httpClient := &http.Client{Timeout: src.Timeout}
	httpGetter := adapter.NewHTTPGetter(httpClient, src.UserAgent)

	base := func(render string) model.PageGetter {
		if render != config.RenderBrowser {
			return httpGetter
		}
		if set.browser == nil {
			set.browser = adapter.NewBrowserGetter(src.Timeout, src.BrowserSettle, src.UserAgent, logger)
		}
		return set.browser
	}
	getter := func(name string, b model.PageGetter, rate float64) model.PageGetter {
		return adapter.NewSourceGetter(b, ratelimit.NewLimiter(rate), src.MaxRetries, logger.With("source", name))
	}
	add := func(c model.SourceCollector) {
		set.collectors = append(set.collectors, c)
		logger.Debug("registered source", "source", c.Name())
	}

	if c := src.Jobindex; c.Enabled {
		add(adapter.NewJobindexCollector(getter("jobindex", httpGetter, c.Rate), c.Regions, c.MaxPages, logger))
	}
	if c := src.Jobnet; c.Enabled {
		add(adapter.NewJobnetCollector(getter("jobnet", base(c.Render), c.Rate), c.MaxPages, c.PageSize, logger))
	}
	if c := src.Jobunivers; c.Enabled {
		add(adapter.NewJobuniversCollector(ratelimit.NewLimiter(c.Rate), c.Locations, src.Timeout, c.FetchDetails, logger))
	}
	if c := src.Careers; c.Enabled {
		pages := make([]adapter.CompanyPage, len(c.Companies))
		for i, co := range c.Companies {
			pages[i] = adapter.CompanyPage{Name: co.Name, URL: co.URL, Sector: co.Sector}
		}
		add(adapter.NewCareersCollector(getter("careers", base(c.Render), c.Rate), pages, logger))
	}
	if c := src.Adzuna; c.Enabled {
		add(adapter.NewAdzunaCollector(getter("adzuna", httpGetter, c.Rate), c.AppID, c.AppKey, c.Country, c.Locations, c.MaxPages, logger))
	}
	if c := src.Greenhouse; c.Enabled {
		add(adapter.NewGreenhouseCollector(getter("greenhouse", httpGetter, c.Rate), boards(c.Boards), cfg.Filters.Locations, logger))
	}
	if c := src.Lever; c.Enabled {
		add(adapter.NewLeverCollector(getter("lever", httpGetter, c.Rate), boards(c.Boards), cfg.Filters.Locations, logger))
	}
	if c := src.Ashby; c.Enabled {
		add(adapter.NewAshbyCollector(getter("ashby", httpGetter, c.Rate), boards(c.Boards), cfg.Filters.Locations, logger))
	}
	if c := src.Gem; c.Enabled {
		add(adapter.NewGemCollector(getter("gem", httpGetter, c.Rate), boards(c.Boards), cfg.Filters.Locations, logger))
	}
	if c := src.Workday; c.Enabled {
		// Listing POSTs and detail GETs draw on one limiter.
		limiter := ratelimit.NewLimiter(c.Rate)
		detail := adapter.NewSourceGetter(httpGetter, limiter, src.MaxRetries, logger.With("source", "workday"))
		add(adapter.NewWorkdayCollector(httpGetter, detail, limiter, boards(c.Sites), cfg.Filters.Locations, c.MaxPages, logger))
	}
	return set
}

func boards(in []config.BoardConfig) []adapter.Board {
	out := make([]adapter.Board, len(in))
	for i, b := range in {
		out[i] = adapter.Board{Token: b.Token, Name: b.Name, Sector: b.Sector}
	}
	return out
}

type sourceRow struct {
	name    string
	enabled bool
	rate    float64
	detail  string
}

func sourceRows(src config.SourcesConfig) []sourceRow {
	return []sourceRow{
		{"jobindex", src.Jobindex.Enabled, src.Jobindex.Rate,
			fmt.Sprintf("regions %s, max %d pages", strings.Join(src.Jobindex.Regions, ","), src.Jobindex.MaxPages)},
		{"jobnet", src.Jobnet.Enabled, src.Jobnet.Rate,
			fmt.Sprintf("%s, max %d pages", src.Jobnet.Render, src.Jobnet.MaxPages)},
		{"jobunivers", src.Jobunivers.Enabled, src.Jobunivers.Rate,
			strings.Join(src.Jobunivers.Locations, ", ")},
		{"careers", src.Careers.Enabled, src.Careers.Rate,
			fmt.Sprintf("%s, %d companies", src.Careers.Render, len(src.Careers.Companies))},
		{"adzuna", src.Adzuna.Enabled, src.Adzuna.Rate,
			fmt.Sprintf("country %s, max %d pages", src.Adzuna.Country, src.Adzuna.MaxPages)},
		{"greenhouse", src.Greenhouse.Enabled, src.Greenhouse.Rate, fmt.Sprintf("%d boards", len(src.Greenhouse.Boards))},
		{"lever", src.Lever.Enabled, src.Lever.Rate, fmt.Sprintf("%d boards", len(src.Lever.Boards))},
		{"ashby", src.Ashby.Enabled, src.Ashby.Rate, fmt.Sprintf("%d boards", len(src.Ashby.Boards))},
		{"gem", src.Gem.Enabled, src.Gem.Rate, fmt.Sprintf("%d boards", len(src.Gem.Boards))},
		{"workday", src.Workday.Enabled, src.Workday.Rate,
			fmt.Sprintf("%d sites, max %d pages", len(src.Workday.Sites), src.Workday.MaxPages)},
	}
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-12s %-9s %-8s %s\n", "Source", "Status", "Rate/s", "Details")
	fmt.Println(strings.Repeat("─", 64))

	enabled, disabled := 0, 0
	for _, r := range sourceRows(cfg.Sources) {
		status := "enabled"
		if !r.enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Printf("%-12s %-9s %-8.2f %s\n", r.name, status, r.rate, r.detail)
	}

	if cfg.Sources.Careers.Enabled {
		fmt.Printf("\nCareer pages:\n")
		for _, c := range cfg.Sources.Careers.Companies {
			fmt.Printf("  %-34s %-22s %s\n", c.Name, c.Sector, c.URL)
		}
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", enabled+disabled, enabled, disabled)
	return nil
}
