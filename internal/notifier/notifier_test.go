package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobagent/internal/model"
)

type fakeNotifier struct {
	err  error
	got  []model.Job
	hits int
}

func (f *fakeNotifier) Notify(_ context.Context, jobs []model.Job) error {
	f.hits++
	f.got = jobs
	return f.err
}

func TestMultiNotifier(t *testing.T) {
	jobs := []model.Job{scoredJob("A", "B", "", 70)}

	tests := []struct {
		name    string
		errs    []error
		wantErr bool
	}{
		{"all succeed", []error{nil, nil}, false},
		{"one fails", []error{errors.New("down"), nil}, false},
		{"all fail", []error{errors.New("down"), errors.New("bounce")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMultiNotifier(discardLogger())
			var fakes []*fakeNotifier
			for i, err := range tt.errs {
				f := &fakeNotifier{err: err}
				fakes = append(fakes, f)
				m.Add(string(rune('a'+i)), f)
			}
			err := m.Notify(context.Background(), jobs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, f := range fakes {
				if f.hits != 1 {
					t.Errorf("expected every channel to be tried once, got %d", f.hits)
				}
			}
		})
	}
}

func TestMultiNotifier_PartialFailureLogsChannelAndJobCount(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	m.Add("email", &fakeNotifier{err: errors.New("resend: 422")})
	m.Add("slack", &fakeNotifier{})

	jobs := []model.Job{scoredJob("A", "B", "", 70), scoredJob("C", "D", "", 65), scoredJob("E", "F", "", 90)}
	if err := m.Notify(context.Background(), jobs); err != nil {
		t.Fatalf("Notify() = %v, want nil with one channel delivered", err)
	}

	out := buf.String()
	var channelLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, `msg="notification channel failed"`) {
			channelLine = line
		}
	}
	if channelLine == "" {
		t.Fatalf("no channel failure logged:\n%s", out)
	}
	for _, want := range []string{"level=ERROR", "channel=email", "jobs=3", "resend: 422"} {
		if !strings.Contains(channelLine, want) {
			t.Errorf("channel failure line missing %q: %s", want, channelLine)
		}
	}
	if !strings.Contains(out, `msg="digest partially delivered, jobs will not be resent"`) ||
		!strings.Contains(out, "failed_channels=[email]") ||
		!strings.Contains(out, "delivered_channels=1") {
		t.Errorf("expected partial delivery summary:\n%s", out)
	}
	if strings.Contains(out, "channel=slack") {
		t.Errorf("delivered channel logged as failed:\n%s", out)
	}
}

func TestSendTestMessage(t *testing.T) {
	f := &fakeNotifier{}
	if err := SendTestMessage(context.Background(), f, 3); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if len(f.got) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(f.got))
	}
	if f.got[0].ContentID == f.got[1].ContentID {
		t.Error("expected distinct synthetic jobs")
	}
	if f.got[0].State() != model.StateAnalyzed {
		t.Errorf("synthetic job should look analyzed, state = %v", f.got[0].State())
	}
}

func TestGroupBySector(t *testing.T) {
	jobs := []model.Job{
		scoredJob("a", "1", "", 50),
		scoredJob("b", "2", "offentlig", 60),
		scoredJob("c", "3", "hospital", 70),
		scoredJob("d", "4", "offentlig", 90),
		scoredJob("e", "5", "konsulent", 10),
	}
	groups := groupBySector(jobs)

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	want := []string{"Konsulent & Rådgivning", "Offentlig Sektor", "hospital", "Øvrige"}
	if len(names) != len(want) {
		t.Fatalf("groups = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("groups = %v, want %v", names, want)
		}
	}
	if groups[1].Jobs[0].Title != "d" {
		t.Errorf("expected highest score first within a sector, got %q", groups[1].Jobs[0].Title)
	}
}
