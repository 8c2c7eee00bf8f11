package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/paperflow/internal/suggest"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// progressMsg carries a per-document progress update from the pipeline.
type progressMsg struct {
	done  int
	total int
}

// pipelineDoneMsg carries the finished pipeline's report.
type pipelineDoneMsg struct {
	report *suggest.Report
	err    error
}

// pipelineModel is the bubbletea model for an in-process pipeline run.
type pipelineModel struct {
	label    string
	cancel   context.CancelFunc
	progress progress.Model
	theme    Theme

	done     int
	total    int
	finished bool
	canceled bool
	report   *suggest.Report
	err      error
}

// newPipelineModel creates a new pipeline progress model.
func newPipelineModel(label string, cancel context.CancelFunc) pipelineModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return pipelineModel{
		label:    label,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m pipelineModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m pipelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Cancel the pipeline but keep the UI up until it reports
			// back, so documents already in flight finish cleanly.
			m.canceled = true
			m.cancel()
			return m, nil
		}

	case progressMsg:
		m.done = msg.done
		m.total = msg.total
		return m, nil

	case pipelineDoneMsg:
		m.finished = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m pipelineModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m pipelineModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.label))
	if m.canceled {
		return fmt.Sprintf("%s cancelling, waiting for in-flight documents...\n", status)
	}
	if m.total == 0 {
		return fmt.Sprintf("%s loading documents...\n", status)
	}

	pct := float64(m.done) / float64(m.total)
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d documents", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m pipelineModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s failed: %s\n", m.label, m.err))
	}

	if m.report != nil {
		r := m.report
		var output string
		if m.canceled {
			output += m.theme.hintStyle().Render("Cancelled") + "\n\n"
		} else {
			output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		}
		output += fmt.Sprintf("  Documents processed: %d\n", r.Processed)
		if r.Failed > 0 {
			output += fmt.Sprintf("  Documents failed:    %d\n", r.Failed)
		}
		if len(r.Errors) > 0 {
			output += m.theme.errorStyle().Render(fmt.Sprintf("\nWarnings (%d):\n", len(r.Errors)))
			for _, e := range r.Errors {
				output += fmt.Sprintf("  • %s\n", e)
			}
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// runPipelineProgress runs a pipeline under an interactive progress UI.
// Ctrl+C cancels the run's context; documents already being processed
// finish, then the partial report is returned.
func runPipelineProgress(ctx context.Context, label string, run func(ctx context.Context, onProgress func(done, total int)) (*suggest.Report, error)) (*suggest.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newPipelineModel(label, cancel)
	p := tea.NewProgram(model)

	go func() {
		report, err := run(ctx, func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		})
		p.Send(pipelineDoneMsg{report: report, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(pipelineModel); ok {
		return m.report, m.err
	}
	return nil, nil
}
