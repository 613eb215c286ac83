package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tirc/internal/driver"
)

const (
	statusQueued   = "queued"
	statusLowering = "lowering"
	statusDone     = "done"
	statusError    = "error"
	statusRejected = "rejected"
)

type progressModel struct {
	title      string
	events     <-chan driver.ProgressEvent
	spinner    spinner.Model
	prog       progress.Model
	items      []classItem
	index      map[string]int
	stageLabel string
	done       int
	total      int
	width      int
	finished   bool
}

type classItem struct {
	name    string
	status  string
	methods int
	failed  int
}

type eventMsg driver.ProgressEvent
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders lowering
// progress per class. It quits when events is closed.
func NewProgressModel(title string, events <-chan driver.ProgressEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int),
		width:   80,
	}
}

// Run drives the progress view on out until events is closed or ctx ends.
func Run(ctx context.Context, title string, events <-chan driver.ProgressEvent, out io.Writer) error {
	p := tea.NewProgram(NewProgressModel(title, events),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.ProgressEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.finished {
		header = "done: " + header
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-12-16, 20)
	for _, item := range m.items {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status))
		counts := ""
		if item.methods > 0 {
			counts = fmt.Sprintf(" %d methods", item.methods)
			if item.failed > 0 {
				counts += fmt.Sprintf(", %d failed", item.failed)
			}
		}
		fmt.Fprintf(&b, "  %s %s%s\n", statusStyled, truncate(item.name, nameWidth), counts)
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) item(class string) *classItem {
	idx, ok := m.index[class]
	if !ok {
		idx = len(m.items)
		m.items = append(m.items, classItem{name: class, status: statusQueued})
		m.index[class] = idx
	}
	return &m.items[idx]
}

func (m *progressModel) applyEvent(ev driver.ProgressEvent) tea.Cmd {
	switch ev.Kind {
	case driver.PhaseStart:
		m.stageLabel = ev.Phase
	case driver.PhaseEnd:
		if ev.Phase == driver.PhaseLower {
			for i := range m.items {
				if m.items[i].status == statusLowering {
					m.items[i].status = statusDone
				}
			}
		}
	case driver.ClassRejected:
		m.item(ev.Class).status = statusRejected
	case driver.MethodLowered:
		it := m.item(ev.Class)
		it.methods++
		switch {
		case ev.Failed:
			it.failed++
			it.status = statusError
		case it.status == statusQueued:
			it.status = statusLowering
		}
		m.done, m.total = ev.Done, ev.Total
		if m.total > 0 {
			return m.prog.SetPercent(float64(m.done) / float64(m.total))
		}
	}
	return nil
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case statusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case statusError, statusRejected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case statusLowering:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
