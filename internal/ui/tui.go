package ui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const appTitle = "silo indexer"

// TUIRenderer shows live progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	tracker *ProgressTracker
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not
// a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, cfg.Subtitle)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithContext(ctx))

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Apply(event)
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.Finish()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}
	program.Quit()

	// An unresponsive terminal must not hang the process.
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

var _ Renderer = (*TUIRenderer)(nil)

type completeMsg CompletionStats
type tickMsg time.Time

// indexingModel is the bubbletea model. It reads the shared tracker on
// every tick rather than receiving each event.
type indexingModel struct {
	tracker  *ProgressTracker
	width    int
	quitting bool
	complete bool
	stats    CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
	subtitle string
}

func newIndexingModel(tracker *ProgressTracker, subtitle string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal))

	bar := progress.New(
		progress.WithSolidFill(ColorTeal),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &indexingModel{
		tracker:  tracker,
		spinner:  s,
		bar:      bar,
		styles:   DefaultStyles(),
		width:    80,
		subtitle: subtitle,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, msg.Width-24)

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Interrupted, finishing files in flight...\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	width := max(40, m.width-4)
	stats := m.tracker.Stats()

	lines := []string{
		m.renderTitle(),
		m.renderStages(stats.Stage),
		m.styles.Rule.Render(strings.Repeat("─", width)),
		m.renderBar(stats),
		m.renderRate(stats),
	}
	if stats.CurrentFile != "" {
		lines = append(lines, m.styles.Pending.Render(truncatePath(stats.CurrentFile, width)))
	}
	if stats.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d failed, last: %s",
			stats.Errors, truncatePath(stats.LastError, width-20))))
	}
	lines = append(lines, m.styles.Pending.Render("ctrl+c to stop"))

	return strings.Join(lines, "\n") + "\n"
}

func (m *indexingModel) renderTitle() string {
	title := m.styles.Title.Render(appTitle)
	if m.subtitle == "" {
		return title
	}
	return title + m.styles.Label.Render("  "+m.subtitle)
}

func (m *indexingModel) renderStages(current Stage) string {
	stages := []Stage{StageScanning, StageIngesting, StageComplete}
	parts := make([]string, len(stages))
	for i, s := range stages {
		switch {
		case s < current:
			parts[i] = m.styles.Done.Render("● " + s.String())
		case s == current:
			parts[i] = m.styles.Accent.Render(m.spinner.View() + " " + s.String())
		default:
			parts[i] = m.styles.Pending.Render("○ " + s.String())
		}
	}
	return strings.Join(parts, m.styles.Pending.Render("  ›  "))
}

func (m *indexingModel) renderBar(stats ProgressStats) string {
	if stats.Queued == 0 {
		return m.styles.Label.Render("walking roots...")
	}
	pct := m.styles.Accent.Render(fmt.Sprintf("%3.0f%%", stats.Fraction*100))
	count := m.styles.Label.Render(fmt.Sprintf("%d / %d files", stats.Done, stats.Queued))
	return fmt.Sprintf("%s %s  %s", m.bar.ViewAs(stats.Fraction), pct, count)
}

func (m *indexingModel) renderRate(stats ProgressStats) string {
	parts := []string{fmt.Sprintf("%.1f files/s", stats.Rate)}
	if stats.Peak > 0 {
		parts = append(parts, fmt.Sprintf("peak %.1f", stats.Peak))
	}
	parts = append(parts, "elapsed "+formatDuration(stats.Elapsed))
	if stats.ETA > 0 {
		parts = append(parts, "eta ≥"+formatDuration(stats.ETA))
	}
	return m.styles.Label.Render(strings.Join(parts, " · "))
}

func (m *indexingModel) renderComplete() string {
	var buf bytes.Buffer
	writeSummary(&buf, m.stats)

	header := m.styles.Accent.Render("✓ " + appTitle + " finished")
	if m.stats.Errors > 0 {
		header = m.styles.Warning.Render(fmt.Sprintf("⚠ %s finished with %d errors", appTitle, m.stats.Errors))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorTealDim)).
		Padding(0, 1).
		Width(max(40, m.width-4))

	return panel.Render(header+"\n\n"+strings.TrimRight(buf.String(), "\n")) + "\n"
}

// formatDuration formats a duration compactly, e.g. "42s" or "3m 5s".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncatePath shortens path to at most maxLen runes, keeping the tail
// where the file name is.
func truncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	if maxLen <= 1 {
		return "…"
	}
	return "…" + string(r[len(r)-maxLen+1:])
}
