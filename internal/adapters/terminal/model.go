// Package terminal renders the reviews marquee in a terminal with bubbletea.
// The marquee runs in column units: one column is one "pixel" of the
// layout and speed policies below.
package terminal

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"academy_site/internal/catalog"
	"academy_site/internal/domain"
	"academy_site/internal/marquee"
)

const (
	tabRow      = 0
	trackTop    = 3
	cardRows    = 4
	defaultCols = 100
)

// SpeedPolicy is DefaultSpeedPolicy scaled to columns per second.
var SpeedPolicy = marquee.SpeedPolicy{
	Breakpoints: []marquee.Breakpoint{
		{MaxWidth: 80, Speed: 4},
		{MaxWidth: 140, Speed: 6},
	},
	Widest: 8,
}

// CardLayout is the card slot in columns.
var CardLayout = marquee.Layout{CardWidth: 34, Gap: 2}

// FrameMsg carries one animation frame timestamp.
type FrameMsg time.Time

var (
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("205"))
	statStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("249"))
	trackStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	pausedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

type span struct {
	from, to int
	src      domain.Source
}

type Model struct {
	mq     *marquee.Marquee
	fps    int
	width  int
	height int
	tabs   []span
}

type Option func(*Model)

func WithFPS(fps int) Option { return func(m *Model) { m.fps = fps } }

// New builds the preview over reviews with src selected.
func New(reviews []domain.Review, src domain.Source, reducedMotion bool, opts ...Option) Model {
	m := Model{
		fps:   30,
		width: defaultCols,
		mq: marquee.New(reviews,
			marquee.WithSpeedPolicy(SpeedPolicy),
			marquee.WithLayoutPolicy(marquee.FixedLayout(CardLayout)),
			marquee.WithViewport(defaultCols),
			marquee.WithReducedMotion(reducedMotion),
		),
	}
	for _, o := range opts {
		o(&m)
	}
	if m.fps <= 0 {
		m.fps = 30
	}
	m.mq.SelectTab(src)
	m.tabs = tabSpans()
	return m
}

// Marquee exposes the underlying state.
func (m Model) Marquee() *marquee.Marquee { return m.mq }

func (m Model) nextFrame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return FrameMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.nextFrame() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.mq.Frame(time.Time(msg))
		return m, m.nextFrame()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.mq.Resize(float64(msg.Width))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sources := domain.Sources()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "1", "2", "3":
		m.selectTab(sources[int(msg.String()[0]-'1')])
	case "tab", "right", "l":
		m.selectTab(sources[(indexOf(sources, m.mq.Active())+1)%len(sources)])
	case "shift+tab", "left", "h":
		m.selectTab(sources[(indexOf(sources, m.mq.Active())+len(sources)-1)%len(sources)])
	case "r":
		m.mq.SetReducedMotion(!m.mq.ReducedMotion())
	}
	return m, nil
}

func (m *Model) selectTab(src domain.Source) { m.mq.SelectTab(src) }

// handleMouse recomputes the hovered regions from the pointer position on
// every motion event: the track while on a track row, plus the card under
// the pointer.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Y == tabRow && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		for _, s := range m.tabs {
			if msg.X >= s.from && msg.X < s.to {
				m.selectTab(s.src)
				break
			}
		}
	}

	m.mq.LeaveAll()
	if msg.Y < trackTop || msg.Y >= trackTop+cardRows || m.mq.HalfWidth() <= 0 {
		return
	}
	m.mq.Enter("track")
	if i, ok := m.cardAt(msg.X); ok {
		m.mq.Enter(fmt.Sprintf("card:%d", i))
	}
}

// cardAt maps a screen column to the index of the card drawn there in the
// doubled track.
func (m *Model) cardAt(x int) (int, bool) {
	total := int(2 * m.mq.HalfWidth())
	if total <= 0 || x < 0 {
		return 0, false
	}
	l := m.mq.Layout()
	slot := int(l.CardWidth + l.Gap)
	pos := (startCol(m.mq.Offset()) + x) % total
	if pos%slot >= int(l.CardWidth) {
		return 0, false
	}
	return pos / slot, true
}

func startCol(offset float64) int { return int(math.Floor(-offset)) }

func (m Model) View() string {
	var b strings.Builder

	for i, s := range m.tabs {
		if i > 0 {
			b.WriteString(" ")
		}
		label := tabLabel(s.src)
		if s.src == m.mq.Active() {
			b.WriteString(activeTabStyle.Render(label))
		} else {
			b.WriteString(tabStyle.Render(label))
		}
	}
	b.WriteString("\n")

	if p, ok := catalog.Platform(m.mq.Active()); ok {
		b.WriteString(statStyle.Render(fmt.Sprintf("%s  %s %s  %s", p.Title, p.StatValue, p.StatLabel, p.Overall)))
	}
	b.WriteString("\n\n")

	for _, line := range m.trackLines() {
		b.WriteString(trackStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	status := m.mq.State().String()
	if m.mq.ReducedMotion() {
		status = "reduced motion"
	}
	b.WriteString(pausedStyle.Render(status))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render("1-3/tab: switch  r: reduced motion  q: quit"))
	return b.String()
}

// trackLines draws the visible window of the doubled track.
func (m Model) trackLines() []string {
	items := m.mq.Items()
	l := m.mq.Layout()
	cw, gap := int(l.CardWidth), int(l.Gap)
	total := int(2 * m.mq.HalfWidth())
	lines := make([]string, cardRows)
	if total <= 0 || len(items) == 0 {
		lines[0] = "No reviews yet."
		return lines
	}

	strip := make([][]rune, cardRows)
	for _, r := range items {
		card := cardText(r, cw)
		for row := range strip {
			strip[row] = append(strip[row], card[row]...)
			strip[row] = append(strip[row], []rune(strings.Repeat(" ", gap))...)
		}
	}

	start := startCol(m.mq.Offset())
	for row := range lines {
		out := make([]rune, m.width)
		for x := range out {
			out[x] = strip[row][(start+x)%total]
		}
		lines[row] = string(out)
	}
	return lines
}

func cardText(r domain.Review, w int) [cardRows][]rune {
	text := []rune(r.Text)
	inner := w - 2
	first, second := text, []rune(nil)
	if len(text) > inner {
		first, second = text[:inner], clip(text[inner:], inner)
	}
	return [cardRows][]rune{
		pad("│ ★★★★★ "+r.Name, w),
		pad("│ "+string(r.Source)+" · "+r.City, w),
		pad("│ "+string(first), w),
		pad("│ "+string(second), w),
	}
}

func clip(r []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	if len(r) <= n {
		return r
	}
	out := append([]rune(nil), r[:n-1]...)
	return append(out, '…')
}

func pad(s string, w int) []rune {
	r := clip([]rune(s), w)
	for len(r) < w {
		r = append(r, ' ')
	}
	return r
}

func tabLabel(src domain.Source) string { return " " + string(src) + " " }

// tabSpans returns the column range of each tab on the tab row.
func tabSpans() []span {
	var spans []span
	x := 0
	for _, src := range domain.Sources() {
		w := lipgloss.Width(tabLabel(src))
		spans = append(spans, span{from: x, to: x + w, src: src})
		x += w + 1
	}
	return spans
}

func indexOf(sources []domain.Source, src domain.Source) int {
	for i, s := range sources {
		if s == src {
			return i
		}
	}
	return 0
}
