// Package dashboard implements the TUI sink: a bubbletea program showing
// live scan progress, resolver health, and recent discoveries, adapted
// from the teacher's crawl dashboard to scan metrics.
package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/snrtherock/subsearch/internal/dispatcher"
)

// Metrics is the snapshot the dispatcher-facing sink publishes into the
// dashboard on every update.
type Metrics struct {
	ScansIssued         int
	ScansTotal          int
	PendingSubdomains   int
	ResolversAlive      int
	ResolversBlacklisted int
	RecordsFound        int
}

type tickMsg time.Time

// Dashboard is the bubbletea model.
type Dashboard struct {
	metrics   Metrics
	recent    []string
	width     int
	height    int
	startTime time.Time
	status    string
	bar       progress.Model
	mu        sync.RWMutex
}

// New builds a dashboard with no data yet; the first tick draws it.
func New() *Dashboard {
	return &Dashboard{
		startTime: time.Now(),
		status:    "running",
		bar:       progress.New(progress.WithDefaultGradient()),
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil
	case tickMsg:
		return d, tickCmd()
	}
	return d, nil
}

func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	header := d.renderHeader()
	footer := d.renderFooter()
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)

	available := d.height - headerHeight - footerHeight
	if available < 0 {
		available = 0
	}
	halfWidth := d.width / 2

	row := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderScanStats(halfWidth, available),
		d.renderRecent(d.width-halfWidth, available),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, row, footer)
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))

	elapsed := time.Since(d.startTime)
	now := time.Now().Format("15:04:05")

	title := titleStyle.Render("subsearch")
	info := timeStyle.Render(fmt.Sprintf(" %s | elapsed %s | time %s", d.status, elapsed.Round(time.Second), now))
	return title + info
}

func (d *Dashboard) renderScanStats(width, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(1, 2).
		Width(width - 2).
		Height(height - 2)

	percent := 0.0
	if d.metrics.ScansTotal > 0 {
		percent = float64(d.metrics.ScansIssued) / float64(d.metrics.ScansTotal)
		if percent > 1 {
			percent = 1
		}
	}
	d.bar.Width = width - 8

	lines := []string{
		"scan progress",
		"",
		d.bar.ViewAs(percent),
		"",
		fmt.Sprintf("Issued:        %d / %d", d.metrics.ScansIssued, d.metrics.ScansTotal),
		fmt.Sprintf("Pending:       %d", d.metrics.PendingSubdomains),
		fmt.Sprintf("Resolvers:     %d alive / %d blacklisted", d.metrics.ResolversAlive, d.metrics.ResolversBlacklisted),
		fmt.Sprintf("Records found: %d", d.metrics.RecordsFound),
	}

	elapsed := time.Since(d.startTime).Seconds()
	if elapsed > 0 {
		rate := float64(d.metrics.ScansIssued) / elapsed
		lines = append(lines, "", fmt.Sprintf("Rate:          %.1f scans/s", rate))
	}

	return box.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderRecent(width, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Padding(1, 2).
		Width(width - 2).
		Height(height - 2)

	lines := []string{fmt.Sprintf("recent records (%d)", len(d.recent)), ""}
	if len(d.recent) == 0 {
		lines = append(lines, "none yet")
	} else {
		maxLines := height - 6
		if maxLines < 0 {
			maxLines = 0
		}
		start := 0
		if len(d.recent) > maxLines {
			start = len(d.recent) - maxLines
		}
		for i := start; i < len(d.recent); i++ {
			lines = append(lines, "  "+d.recent[i])
		}
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Padding(1, 0)
	return style.Render("q or ctrl+c to quit")
}

func (d *Dashboard) setMetrics(m Metrics) {
	d.mu.Lock()
	d.metrics = m
	d.mu.Unlock()
}

func (d *Dashboard) addRecent(line string) {
	d.mu.Lock()
	d.recent = append(d.recent, line)
	if len(d.recent) > 50 {
		d.recent = d.recent[len(d.recent)-50:]
	}
	d.mu.Unlock()
}

func (d *Dashboard) setStatus(s string) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Run starts the full-screen program; it blocks until the user quits.
func (d *Dashboard) Run() error {
	p := tea.NewProgram(d, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Sink adapts Dashboard to internal/listener.Sink: status text becomes
// dashboard chrome instead of scrollback lines, and records feed the
// recent-discoveries panel instead of stdout.
type Sink struct {
	dash        *Dashboard
	scansTotal  int
	recordCount int
	mu          sync.Mutex
}

// NewSink wraps dash as a listener.Sink, seeded with the scan's total
// subdomain count for progress display.
func NewSink(dash *Dashboard, scansTotal int) *Sink {
	dash.setMetrics(Metrics{ScansTotal: scansTotal, PendingSubdomains: scansTotal})
	return &Sink{dash: dash, scansTotal: scansTotal}
}

func (s *Sink) PrintHeader(string)          {}
func (s *Sink) PrintConfig(string)          {}
func (s *Sink) PrintTarget(string)          {}
func (s *Sink) PrintStatus(msg string)      { s.dash.setStatus(msg) }
func (s *Sink) PrintSuccess(string)         {}
func (s *Sink) PrintInfo(string)            {}
func (s *Sink) PrintInfoDuringScan(string)  {}
func (s *Sink) PrintWarning(msg string)     { s.dash.addRecent("! " + msg) }
func (s *Sink) PrintError(msg string)       { s.dash.setStatus("error: " + msg) }
func (s *Sink) PrintErrorWithoutTime(msg string) { s.dash.setStatus("error: " + msg) }
func (s *Sink) PrintTaskCompleted(string)   { s.dash.setStatus("completed") }
func (s *Sink) PrintTaskFailed(msg string)  { s.dash.setStatus("failed: " + msg) }

func (s *Sink) PrintLastScan(subdomain string, issued, total int) {
	s.mu.Lock()
	s.dash.setMetrics(Metrics{
		ScansIssued:       issued,
		ScansTotal:        total,
		PendingSubdomains: total - issued,
		RecordsFound:      s.recordCount,
	})
	s.mu.Unlock()
}

func (s *Sink) recordsLine(records []dispatcher.Record) {
	s.mu.Lock()
	s.recordCount += len(records)
	s.mu.Unlock()
	for _, r := range records {
		s.dash.addRecent(fmt.Sprintf("%s %s %s", r.Name, r.Type, r.Data))
	}
}

func (s *Sink) PrintRecords(records []dispatcher.Record)          { s.recordsLine(records) }
func (s *Sink) PrintRecordsDuringScan(records []dispatcher.Record) { s.recordsLine(records) }

func (s *Sink) PrintPausingThreads()      { s.dash.setStatus("pausing") }
func (s *Sink) PrintPauseOptions()        { s.dash.setStatus("paused") }
func (s *Sink) PrintInvalidPauseOptions() {}

// Flush is immediate: the dashboard renders from in-memory state only.
func (s *Sink) Flush() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
