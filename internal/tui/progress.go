package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "

	stepWidth   = 24
	statusWidth = 8
	detailWidth = 40
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner and the detail marquee.
type tickMsg time.Time

// SceneRow names one scene row in the compose table.
type SceneRow struct {
	Position int
	ID       string
}

type rowKind int

const (
	stageRow rowKind = iota
	sceneRow
)

type row struct {
	key    string
	kind   rowKind
	label  string
	status string
	detail string
}

// ProgressModel renders the compose table: one row per pipeline stage, with
// the scene rows nested directly under the narration stage.
type ProgressModel struct {
	title     string
	narration string
	rows      []row
	index     map[string]int
	started   time.Time

	// provider is the voice provider currently voicing the scene rows.
	provider string

	tick    int
	done    bool
	aborted bool
	err     error
}

// NewComposeModel builds the table for the given stages and scenes.
func NewComposeModel(title string, stages []string, narrationStage string, scenes []SceneRow) ProgressModel {
	m := ProgressModel{
		title:     title,
		narration: narrationStage,
		index:     make(map[string]int),
		started:   time.Now(),
	}
	for _, stage := range stages {
		m.add(row{key: StageKey(stage), kind: stageRow, label: stage, status: StatusPending})
		if stage != narrationStage {
			continue
		}
		for _, sc := range scenes {
			label := fmt.Sprintf("  %02d %s", sc.Position, sc.ID)
			m.add(row{key: SceneKey(sc.Position), kind: sceneRow, label: label, status: StatusPending})
		}
	}
	return m
}

func (m *ProgressModel) add(r row) {
	m.index[r.key] = len(m.rows)
	m.rows = append(m.rows, r)
}

// StageKey is the row key of a pipeline stage.
func StageKey(stage string) string { return "stage:" + stage }

// SceneKey is the row key of a scene.
func SceneKey(position int) string { return fmt.Sprintf("scene:%02d", position) }

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case RowUpdateMsg:
		if i, ok := m.index[msg.Key]; ok {
			m.rows[i].status = msg.Status
			m.rows[i].detail = msg.Detail
		}
		return m, nil

	case ProviderMsg:
		m.startProvider(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// startProvider marks narration as trying the provider and resets every
// scene row, since a new attempt voices all scenes from scratch.
func (m *ProgressModel) startProvider(msg ProviderMsg) {
	m.provider = msg.Provider
	if i, ok := m.index[StageKey(m.narration)]; ok {
		m.rows[i].status = StatusTrying
		m.rows[i].detail = msg.Provider
	}
	for i := range m.rows {
		if m.rows[i].kind == sceneRow {
			m.rows[i].status = StatusPending
			m.rows[i].detail = ""
		}
	}
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n",
		HeaderStyle.Render(pad(ColStep, stepWidth)),
		HeaderStyle.Render(pad(ColStatus, statusWidth)),
		HeaderStyle.Render(ColDetail))

	for _, r := range m.rows {
		detail := TruncateWithEllipsis(r.detail, detailWidth)
		if !m.done && len(strings.TrimSpace(r.detail)) > detailWidth {
			detail = marqueeText(r.detail, detailWidth, m.tick)
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			pad(TruncateWithEllipsis(r.label, stepWidth), stepWidth),
			StatusStyle(r.status).Render(pad(r.status, statusWidth)),
			detail)
	}

	switch {
	case m.aborted:
		b.WriteString("\nAborted\n")
	case !m.done:
		b.WriteString("\n" + m.footer() + "\n")
	}
	return b.String()
}

// footer summarises progress while work runs, e.g.
// "⠋ stages 2/6, scenes 1/3 via edge (4.2s)".
func (m ProgressModel) footer() string {
	c := m.counts()
	spinner := spinnerFrames[m.tick%len(spinnerFrames)]
	line := fmt.Sprintf("%s stages %d/%d", spinner, c.stagesDone, c.stages)
	if c.scenes > 0 {
		line += fmt.Sprintf(", scenes %d/%d", c.scenesDone, c.scenes)
		if m.provider != "" {
			line += " via " + m.provider
		}
	}
	return line + fmt.Sprintf(" (%s)", formatElapsed(time.Since(m.started)))
}

type rowCounts struct {
	stages, stagesDone int
	scenes, scenesDone int
}

// counts tallies stage and scene rows separately. A scene counts as done
// once the current provider has fitted its track.
func (m ProgressModel) counts() rowCounts {
	var c rowCounts
	for _, r := range m.rows {
		finished := terminalStatuses[r.status]
		switch r.kind {
		case stageRow:
			c.stages++
			if finished {
				c.stagesDone++
			}
		case sceneRow:
			c.scenes++
			if finished {
				c.scenesDone++
			}
		}
	}
	return c
}

// formatElapsed formats a duration for the footer.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Done reports whether the model stopped for any reason.
func (m ProgressModel) Done() bool {
	return m.done
}

// Aborted reports whether the user quit before the work finished.
func (m ProgressModel) Aborted() bool {
	return m.aborted
}

// Err returns the fatal error delivered through ErrorMsg.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText slides a window of the given width across text, one byte per
// tick, with a short gap between cycles.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	var out strings.Builder
	out.Grow(width)
	for i := 0; i < width; i++ {
		out.WriteByte(cycle[(tick+i)%len(cycle)])
	}
	return out.String()
}

// NonEmptyOrDash returns "-" for empty or blank strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis cuts value to max bytes, ending in "..." when there
// is room for it.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
