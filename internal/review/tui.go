package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobagent/internal/model"
)

// FeedbackStore records the verdicts given in the review TUI.
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, fb model.Feedback) error
}

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type pane int

const (
	paneList pane = iota
	paneDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailValueStyle = lipgloss.NewStyle()

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	likeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dislikeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// scoreStyle colors a score the way the e-mail digest does.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	case score >= 60:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	}
}

// feedbackSavedMsg is sent when an async feedback insert completes.
type feedbackSavedMsg struct {
	contentID string
	kind      model.FeedbackKind
	err       error
}

type reviewModel struct {
	jobs         []model.Job
	store        FeedbackStore
	listViewport viewport.Model
	detail       viewport.Model
	focus        pane
	cursor       int
	width        int
	height       int
	ready        bool

	rated           map[string]model.FeedbackKind
	saving          bool
	status          string
	statusErr       bool
	showDescription bool

	wantQuit bool
}

func newReviewModel(jobs []model.Job, store FeedbackStore) reviewModel {
	return reviewModel{
		jobs:  jobs,
		store: store,
		rated: make(map[string]model.FeedbackKind),
	}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case feedbackSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.status = fmt.Sprintf("feedback not saved: %v", msg.err)
			m.statusErr = true
		} else {
			m.rated[msg.contentID] = msg.kind
			m.status = fmt.Sprintf("saved %s", msg.kind)
			m.statusErr = false
		}
		m.recalcContent()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m reviewModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.focus = 1 - m.focus
		return m, nil
	case "l":
		return m.recordFeedback(model.FeedbackLike)
	case "d":
		return m.recordFeedback(model.FeedbackDislike)
	case "o":
		if job, ok := m.current(); ok && job.URL != "" {
			openURL(job.URL)
		}
		return m, nil
	case "r":
		m.showDescription = !m.showDescription
		m.detail.SetContent(m.renderDetail())
		m.detail.SetYOffset(0)
		return m, nil
	}

	if m.focus == paneList {
		switch msg.String() {
		case "up", "k":
			m.moveCursor(-1)
			return m, nil
		case "down", "j":
			m.moveCursor(1)
			return m, nil
		}
		var cmd tea.Cmd
		m.listViewport, cmd = m.listViewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m reviewModel) recordFeedback(kind model.FeedbackKind) (tea.Model, tea.Cmd) {
	job, ok := m.current()
	if !ok || m.saving || m.store == nil {
		return m, nil
	}
	m.saving = true
	m.status = fmt.Sprintf("saving %s...", kind)
	m.statusErr = false
	return m, saveFeedbackCmd(m.store, job.ContentID, kind)
}

func saveFeedbackCmd(store FeedbackStore, contentID string, kind model.FeedbackKind) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := store.InsertFeedback(ctx, model.Feedback{
			ContentID: contentID,
			Kind:      kind,
		})
		return feedbackSavedMsg{contentID: contentID, kind: kind, err: err}
	}
}

func (m reviewModel) current() (model.Job, bool) {
	if len(m.jobs) == 0 {
		return model.Job{}, false
	}
	return m.jobs[m.cursor], true
}

func (m *reviewModel) moveCursor(delta int) {
	next := clamp(m.cursor+delta, 0, max(len(m.jobs)-1, 0))
	if next == m.cursor {
		return
	}
	m.cursor = next
	m.showDescription = false
	m.recalcContent()
	m.detail.SetYOffset(0)
	m.ensureCursorVisible()
}

func (m *reviewModel) ensureCursorVisible() {
	cursorTop := m.cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m *reviewModel) recalcLayout() {
	// The list takes two fifths of the width; 2 border chars per pane + 1 gap.
	listWidth := max((m.width-5)*2/5, 24)
	detailWidth := max(m.width-5-listWidth, 24)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(listWidth, paneHeight)
		m.detail = viewport.New(detailWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = listWidth
		m.listViewport.Height = paneHeight
		m.detail.Width = detailWidth
		m.detail.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.listViewport.SetContent(renderJobs(m.jobs, m.cursor, m.rated))
	m.detail.SetContent(m.renderDetail())
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	listHeader := fmt.Sprintf(" Analyzed Jobs (%d)", len(m.jobs))
	detailHeader := " Details"

	listHeaderStyle, detailHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	listBorder, detailBorder := activeBorderStyle, inactiveBorderStyle
	if m.focus == paneDetail {
		listHeaderStyle, detailHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		listBorder, detailBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.listViewport.Width+2).Render(listHeaderStyle.Render(listHeader)),
		" ",
		lipgloss.NewStyle().Width(m.detail.Width+2).Render(detailHeaderStyle.Render(detailHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Width(m.listViewport.Width).Render(m.listViewport.View()),
		" ",
		detailBorder.Width(m.detail.Width).Render(m.detail.View()),
	)

	statusText := fmt.Sprintf(" %d rated    ↑/↓ move  Tab switch  l like  d dislike  r desc  o open  Esc back  q quit",
		len(m.rated))
	if m.status != "" {
		statusText = " " + m.status + "  |" + statusText
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	j, ok := m.current()
	if !ok {
		return "  (no analyzed jobs)"
	}

	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	wrapWidth := max(m.detail.Width-2, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len([]rune(label)), 3))
		return dividerStyle.Render(label + fill)
	}

	scoreText := "unscored"
	if j.Scored() {
		scoreText = fmt.Sprintf("%d/100", j.Score())
	}
	b.WriteString(scoreStyle(j.Score()).Render(scoreText))
	b.WriteString("  ")
	b.WriteString(jobTitleStyle.Render(j.Title))
	b.WriteString("\n\n")

	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Sector", j.Sector)
	addField("Source", j.Source)
	addField("Deadline", j.Deadline)
	addField("Salary", j.Salary)
	addField("Scraped", j.ScrapedAt.Local().Format("2006-01-02 15:04"))
	if j.NotifiedAt != nil {
		addField("Notified", j.NotifiedAt.Local().Format("2006-01-02 15:04"))
	}
	addField("ID", j.ContentID)
	if kind, ok := m.rated[j.ContentID]; ok {
		addField("Feedback", string(kind))
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Reasoning ") + "\n")
	b.WriteString(bodyStyle.Render(wordWrap(j.RelevanceReasoning, wrapWidth)) + "\n")

	if len(j.Highlights) > 0 {
		b.WriteByte('\n')
		b.WriteString(divider("── Highlights ") + "\n")
		for _, h := range j.Highlights {
			b.WriteString(likeStyle.Render("  + ") + h + "\n")
		}
	}
	if len(j.Concerns) > 0 {
		b.WriteByte('\n')
		b.WriteString(divider("── Concerns ") + "\n")
		for _, c := range j.Concerns {
			b.WriteString(dislikeStyle.Render("  - ") + c + "\n")
		}
	}

	b.WriteByte('\n')
	addField("URL", j.URL)

	if m.statusErr {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.status) + "\n")
	}

	if j.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(j.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func renderJobs(jobs []model.Job, cursor int, rated map[string]model.FeedbackKind) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if i == cursor {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(scoreStyle(j.Score()).Render(fmt.Sprintf("%3s", j.ScoreLabel())))
		b.WriteByte(' ')
		b.WriteString(titleSt.Render(j.Title))
		switch rated[j.ContentID] {
		case model.FeedbackLike:
			b.WriteString(likeStyle.Render(" ♥"))
		case model.FeedbackDislike:
			b.WriteString(dislikeStyle.Render(" ✗"))
		}
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("    %s · %s", j.Company, j.Source)))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the split-pane review of analyzed jobs. Feedback is
// written through store as it is given.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the source picker.
func RunReviewTUI(jobs []model.Job, store FeedbackStore) (bool, error) {
	p := tea.NewProgram(newReviewModel(jobs, store), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(reviewModel)
	return final.wantQuit, nil
}
