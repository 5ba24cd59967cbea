package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobagent/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("JOBAGENT_CONFIG", "")
	if got := resolveConfigPath(""); got != "config.yaml" {
		t.Errorf("default = %q, want config.yaml", got)
	}

	t.Setenv("JOBAGENT_CONFIG", "/etc/jobagent.yaml")
	if got := resolveConfigPath(""); got != "/etc/jobagent.yaml" {
		t.Errorf("env = %q, want /etc/jobagent.yaml", got)
	}
	if got := resolveConfigPath("local.yaml"); got != "local.yaml" {
		t.Errorf("explicit = %q, want local.yaml", got)
	}
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients(" a@b.dk, ,c@d.dk ")
	if len(got) != 2 || got[0] != "a@b.dk" || got[1] != "c@d.dk" {
		t.Errorf("splitRecipients = %v", got)
	}
	if splitRecipients("") != nil {
		t.Error("empty input should give no recipients")
	}
}

func TestBuildSources_OnlyEnabled(t *testing.T) {
	cfg := &config.Config{
		Sources: config.SourcesConfig{
			Timeout:  time.Second,
			Jobindex: config.JobindexConfig{Enabled: true, Rate: 0.5, Regions: []string{"1"}, MaxPages: 1},
			Jobnet:   config.JobnetConfig{Enabled: false, Render: config.RenderHTTP},
			Careers: config.CareersConfig{
				Enabled:   true,
				Render:    config.RenderHTTP,
				Companies: []config.CompanyConfig{{Name: "KL", URL: "https://www.kl.dk/job"}},
			},
			Lever: config.BoardSourceConfig{Enabled: true, Boards: []config.BoardConfig{{Token: "acme"}}},
			Workday: config.WorkdayConfig{
				Enabled: true,
				Sites:   []config.BoardConfig{{Token: "https://acme.wd3.myworkdayjobs.com/wday/cxs/acme/Careers", Name: "Acme"}},
			},
		},
	}

	set := buildSources(cfg, discardLogger())
	defer set.Close()

	var names []string
	for _, c := range set.collectors {
		names = append(names, c.Name())
	}
	want := []string{"jobindex", "careers", "lever", "workday"}
	if len(names) != len(want) {
		t.Fatalf("collectors = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("collectors[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if set.browser != nil {
		t.Error("browser must not start without a browser-rendered source")
	}
}

func TestBuildSources_BrowserSharedAcrossSources(t *testing.T) {
	cfg := &config.Config{
		Sources: config.SourcesConfig{
			Timeout: time.Second,
			Jobnet:  config.JobnetConfig{Enabled: true, Render: config.RenderBrowser, MaxPages: 1, PageSize: 20},
			Careers: config.CareersConfig{
				Enabled:   true,
				Render:    config.RenderBrowser,
				Companies: []config.CompanyConfig{{Name: "KL", URL: "https://www.kl.dk/job"}},
			},
		},
	}

	set := buildSources(cfg, discardLogger())
	defer set.Close()

	if len(set.collectors) != 2 {
		t.Fatalf("expected 2 collectors, got %d", len(set.collectors))
	}
	if set.browser == nil {
		t.Error("expected a browser getter for browser-rendered sources")
	}
}

func TestSourceRows_CoversEverySource(t *testing.T) {
	rows := sourceRows(config.SourcesConfig{})
	if len(rows) != 10 {
		t.Fatalf("expected 10 sources, got %d", len(rows))
	}
	seen := make(map[string]bool)
	for _, r := range rows {
		seen[r.name] = true
	}
	for _, name := range []string{"jobindex", "jobnet", "jobunivers", "careers", "adzuna", "greenhouse", "lever", "ashby", "gem", "workday"} {
		if !seen[name] {
			t.Errorf("missing source %q", name)
		}
	}
}

func TestExecute_PrintsCommandErrorToStderr(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "search_terms: [analytiker]\n" +
		"sources:\n  jobindex:\n    enabled: true\n" +
		"database:\n  path: " + filepath.Join(dir, "jobs.db") + "\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"feedback", "does-not-exist", "like", "-c", cfgFile})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgPath = ""
	})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown content id")
	}
	if !strings.Contains(stderr.String(), "no stored job with id does-not-exist") {
		t.Errorf("error not shown on stderr, got %q", stderr.String())
	}
	if strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("usage should not be printed for a runtime error, got %q", stderr.String())
	}
}
