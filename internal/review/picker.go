package review

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobagent/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// AllSources is the picker entry that selects every job.
const AllSources = "all sources"

// SourceOption is one picker entry.
type SourceOption struct {
	Name  string
	Count int
}

// SourceOptions builds the picker entries for jobs: all sources first, then
// each source alphabetically with its job count.
func SourceOptions(jobs []model.Job) []SourceOption {
	counts := make(map[string]int)
	for _, j := range jobs {
		counts[j.Source]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)

	opts := []SourceOption{{Name: AllSources, Count: len(jobs)}}
	for _, name := range names {
		opts = append(opts, SourceOption{Name: name, Count: counts[name]})
	}
	return opts
}

// FilterBySource returns the jobs from source, or all jobs for AllSources.
func FilterBySource(jobs []model.Job, source string) []model.Job {
	if source == AllSources {
		return jobs
	}
	var out []model.Job
	for _, j := range jobs {
		if j.Source == source {
			out = append(out, j)
		}
	}
	return out
}

type pickerModel struct {
	options []SourceOption
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Review: select a source")
	s += "\n"

	for i, o := range m.options {
		label := fmt.Sprintf("%s (%d)", o.Name, o.Count)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunSourcePicker shows an interactive source selector.
// Returns the index of the chosen option, or -1 if the user quit.
func RunSourcePicker(options []SourceOption) (int, error) {
	m := pickerModel{
		options: options,
		chosen:  -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
