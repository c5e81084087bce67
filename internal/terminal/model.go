// Package terminal renders a scratch card in the terminal. Mouse drags
// scratch the coating; the reveal dialog copies or shares the code.
package terminal

import (
	"context"
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/reveal"
	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

// Each terminal cell stands for a block of layer pixels. Cells are roughly
// twice as tall as they are wide, hence the 1:2 block.
const (
	cellWidth  = 8
	cellHeight = 16

	headerRows = 2
	originX    = 1 // left border
	originY    = headerRows + 1
)

// DefaultColumns is the card width in terminal cells.
const DefaultColumns = 50

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
	coatingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9E9E9E"))
	prizeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD166")).
			Padding(0, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFD166"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)

// shades from fully covered to almost cleared.
var shades = []rune{'█', '▓', '▒', '░'}

const prizeText = "ParcelAce reward"

// Options configures a terminal scratch card.
type Options struct {
	Columns   int
	Offer     *model.RewardOffer
	Settings  scratch.Settings
	Seed      uint64
	Clipboard reveal.Clipboard
	Sharer    reveal.Sharer
}

// actionMsg reports the outcome of a copy or share.
type actionMsg struct {
	text string
	err  error
}

// Model is the Bubble Tea model of a terminal scratch card.
type Model struct {
	layer     *scratch.OcclusionLayer
	card      *scratch.Card
	settings  scratch.Settings
	maxCols   int
	cols      int
	rows      int
	result    *reveal.Reveal
	clipboard reveal.Clipboard
	sharer    reveal.Sharer
	status    string
}

// New mounts a card of opts.Columns cells.
func New(opts Options) *Model {
	cols := opts.Columns
	if cols < 0 {
		cols = 0
	}
	m := &Model{
		settings:  opts.Settings,
		maxCols:   cols,
		clipboard: opts.Clipboard,
		sharer:    opts.Sharer,
	}
	if m.sharer == nil && m.clipboard != nil {
		m.sharer = clipboardSharer{m.clipboard}
	}

	m.layer = scratch.NewOcclusionLayer(cols*cellWidth, opts.Settings, opts.Seed)
	m.card = scratch.NewCard(m.layer, opts.Offer, opts.Settings, func(code, validUntil string) {
		r := reveal.New(code, validUntil)
		m.result = &r
	})
	m.fit(cols)
	return m
}

func (m *Model) fit(cols int) {
	m.cols = cols
	_, h := m.layer.Size()
	m.rows = (h + cellHeight - 1) / cellHeight
}

// Card exposes the underlying card.
func (m *Model) Card() *scratch.Card { return m.card }

// Reveal returns the reward once the card is revealed.
func (m *Model) Reveal() (reveal.Reveal, bool) {
	if m.result == nil {
		return reveal.Reveal{}, false
	}
	return *m.result, true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width)
	case actionMsg:
		m.status = msg.text
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.text, msg.err)
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.card.Close()
		return m, tea.Quit
	case "c":
		return m, m.copyCmd()
	case "s":
		return m, m.shareCmd()
	}
	return m, nil
}

func (m *Model) copyCmd() tea.Cmd {
	if m.result == nil || m.clipboard == nil {
		return nil
	}
	r, cb := *m.result, m.clipboard
	return func() tea.Msg {
		if err := r.Copy(cb); err != nil {
			return actionMsg{text: "Could not copy code", err: err}
		}
		return actionMsg{text: "Code copied to clipboard"}
	}
}

func (m *Model) shareCmd() tea.Cmd {
	if m.result == nil || m.sharer == nil {
		return nil
	}
	r, s := *m.result, m.sharer
	return func() tea.Msg {
		if err := r.Share(context.Background(), s); err != nil {
			return actionMsg{text: "Could not share reward", err: err}
		}
		return actionMsg{text: "Share message copied to clipboard"}
	}
}

// cellAt maps a terminal position to the card cell under it.
func (m *Model) cellAt(x, y int) (image.Point, bool) {
	cx, cy := x-originX, y-originY
	if cx < 0 || cy < 0 || cx >= m.cols || cy >= m.rows {
		return image.Point{}, false
	}
	return image.Pt(cx, cy), true
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	cell, inside := m.cellAt(msg.X, msg.Y)
	if !inside {
		m.card.PointerLeave()
		return
	}
	p := image.Pt(cell.X*cellWidth+cellWidth/2, cell.Y*cellHeight+cellHeight/2)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		m.card.PointerDown()
		m.card.PointerMove(p)
	case tea.MouseActionMotion:
		m.card.PointerMove(p)
	case tea.MouseActionRelease:
		m.card.PointerUp()
	}
}

func (m *Model) handleResize(termWidth int) {
	cols := m.maxCols
	if avail := termWidth - 2*originX; avail < cols {
		cols = max(avail, 0)
	}
	if cols == m.cols {
		return
	}
	m.card.Resize(cols * cellWidth)
	m.fit(cols)
}

// View implements tea.Model.
func (m *Model) View() string {
	header := titleStyle.Render("ParcelAce scratch card")
	progress := progressStyle.Render(fmt.Sprintf("%d%% scratched", m.card.Progress()))
	sections := []string{header, progress}

	if m.cols > 0 && m.rows > 0 {
		sections = append(sections, cardStyle.Render(m.renderGrid()))
	} else {
		sections = append(sections, cardStyle.Render("Nothing to scratch"))
	}

	if r, ok := m.Reveal(); ok {
		sections = append(sections,
			prizeStyle.Render("You've unlocked a reward!"),
			codeStyle.Render(r.PromoCode),
			r.ExpiryText,
			hintStyle.Render("c → copy code    s → share    q → quit"),
		)
	} else {
		sections = append(sections, hintStyle.Render("Drag with the mouse to scratch    q → quit"))
	}
	if m.status != "" {
		sections = append(sections, progressStyle.Render(m.status))
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderGrid() string {
	prizeRow := m.rows / 2
	prize := []rune(prizeText)
	prizeStart := (m.cols - len(prize)) / 2

	var b strings.Builder
	for cy := 0; cy < m.rows; cy++ {
		if cy > 0 {
			b.WriteByte('\n')
		}
		for cx := 0; cx < m.cols; cx++ {
			under := ' '
			if i := cx - prizeStart; cy == prizeRow && i >= 0 && i < len(prize) {
				under = prize[i]
			}
			if m.card.Revealed() {
				b.WriteString(prizeStyle.Render(string(under)))
				continue
			}
			rect := image.Rect(cx*cellWidth, cy*cellHeight, (cx+1)*cellWidth, (cy+1)*cellHeight)
			cleared := m.layer.ClearedIn(rect)
			if cleared >= 0.95 {
				b.WriteString(prizeStyle.Render(string(under)))
				continue
			}
			shade := shades[min(int(cleared*float64(len(shades))), len(shades)-1)]
			b.WriteString(coatingStyle.Render(string(shade)))
		}
	}
	return b.String()
}

// clipboardSharer is the terminal's share sheet: the message goes to the clipboard.
type clipboardSharer struct {
	cb reveal.Clipboard
}

func (s clipboardSharer) Share(_ context.Context, title, text string) error {
	return s.cb.WriteAll(title + "\n" + text)
}
