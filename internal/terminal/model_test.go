package terminal

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func newTestModel(t *testing.T, cols int, offer *model.RewardOffer) (*Model, *fakeClipboard) {
	t.Helper()
	cb := &fakeClipboard{}
	m := New(Options{
		Columns:   cols,
		Offer:     offer,
		Settings:  scratch.DefaultSettings(),
		Seed:      42,
		Clipboard: cb,
	})
	return m, cb
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// scratchAll drags across every cell of the card.
func scratchAll(m *Model) {
	m.Update(mouse(tea.MouseActionPress, originX, originY))
	for cy := 0; cy < m.rows; cy++ {
		for cx := 0; cx < m.cols; cx++ {
			m.Update(mouse(tea.MouseActionMotion, originX+cx, originY+cy))
		}
	}
	m.Update(mouse(tea.MouseActionRelease, originX, originY))
}

func TestNew_Layout(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	assert.Equal(t, 50, m.cols)
	assert.Equal(t, 13, m.rows, "a 400x200 layer needs 13 rows of 16 px")
	assert.Equal(t, 80000, m.Card().TotalPixels())

	view := m.View()
	assert.Contains(t, view, "0% scratched")
	assert.Contains(t, view, "Drag with the mouse to scratch")
	assert.NotContains(t, view, "PARCEL20", "the code stays hidden until the reveal")
}

func TestMotionWithoutPressDoesNotScratch(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	m.Update(mouse(tea.MouseActionMotion, originX+10, originY+5))

	assert.Zero(t, m.Card().ScratchedPixels())
	assert.Equal(t, scratch.StateIdle, m.Card().State())
}

func TestPressScratchesUnderPointer(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	m.Update(mouse(tea.MouseActionPress, originX+10, originY+5))

	assert.Equal(t, scratch.StateScratching, m.Card().State())
	assert.Positive(t, m.Card().ScratchedPixels())
}

func TestRightButtonDoesNotScratch(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	m.Update(tea.MouseMsg{X: originX + 10, Y: originY + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})

	assert.Equal(t, scratch.StateIdle, m.Card().State())
	assert.Zero(t, m.Card().ScratchedPixels())
}

func TestLeavingTheCardStopsScratching(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)
	m.Update(mouse(tea.MouseActionPress, originX+10, originY+5))
	before := m.Card().ScratchedPixels()

	m.Update(mouse(tea.MouseActionMotion, originX+m.cols+5, originY))
	assert.Equal(t, scratch.StateIdle, m.Card().State())

	m.Update(mouse(tea.MouseActionMotion, originX+20, originY+5))
	assert.Equal(t, before, m.Card().ScratchedPixels(), "moves after leaving do not scratch")
}

func TestScratchingRevealsReward(t *testing.T) {
	offer := &model.RewardOffer{DiscountCode: "ACE15", ValidUntil: "2025-12-31"}
	m, _ := newTestModel(t, DefaultColumns, offer)

	scratchAll(m)

	require.True(t, m.Card().Revealed())
	r, ok := m.Reveal()
	require.True(t, ok)
	assert.Equal(t, "ACE15", r.PromoCode)
	assert.Equal(t, "Valid until December 31, 2025", r.ExpiryText)

	view := m.View()
	assert.Contains(t, view, "ACE15")
	assert.Contains(t, view, "Valid until December 31, 2025")
	assert.Contains(t, view, "c → copy code")
}

func TestDefaultRewardWithoutOffer(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	scratchAll(m)

	r, ok := m.Reveal()
	require.True(t, ok)
	assert.Equal(t, "PARCEL20", r.PromoCode)
	assert.Equal(t, "Valid until December 31, 2024", r.ExpiryText)
}

func TestCopyCode(t *testing.T) {
	m, cb := newTestModel(t, DefaultColumns, nil)

	_, cmd := m.Update(key("c"))
	assert.Nil(t, cmd, "nothing to copy before the reveal")

	scratchAll(m)
	_, cmd = m.Update(key("c"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "PARCEL20", cb.text)
	assert.Contains(t, m.View(), "Code copied to clipboard")
}

func TestCopyCode_ClipboardError(t *testing.T) {
	m, cb := newTestModel(t, DefaultColumns, nil)
	cb.err = errors.New("no display")
	scratchAll(m)

	_, cmd := m.Update(key("c"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Contains(t, m.View(), "Could not copy code")
	assert.Contains(t, m.View(), "no display")
}

func TestShareReward(t *testing.T) {
	m, cb := newTestModel(t, DefaultColumns, &model.RewardOffer{DiscountCode: "ACE15", ValidUntil: "2025-12-31"})
	scratchAll(m)

	_, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "My ParcelAce reward\nI just unlocked a ParcelAce discount! Use code ACE15 on your next shipment. Valid until December 31, 2025.", cb.text)
	assert.Contains(t, m.View(), "Share message copied to clipboard")
}

func TestQuitClosesCard(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Card().Closed())

	m.Update(mouse(tea.MouseActionPress, originX+10, originY+5))
	assert.Zero(t, m.Card().ScratchedPixels(), "a closed card ignores input")
}

func TestWindowResizeShrinksCard(t *testing.T) {
	m, _ := newTestModel(t, DefaultColumns, nil)

	m.Update(tea.WindowSizeMsg{Width: 30, Height: 40})

	assert.Equal(t, 28, m.cols)
	assert.Equal(t, 224*200, m.Card().TotalPixels())

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, DefaultColumns, m.cols, "the card never grows past its configured width")
	assert.Equal(t, 80000, m.Card().TotalPixels())
}

func TestZeroColumnsIsInert(t *testing.T) {
	m, _ := newTestModel(t, 0, nil)

	require.NotPanics(t, func() {
		m.Update(mouse(tea.MouseActionPress, originX, originY))
		m.Update(mouse(tea.MouseActionMotion, originX+1, originY+1))
	})

	assert.Zero(t, m.Card().Progress())
	assert.False(t, m.Card().Revealed())
	assert.Contains(t, m.View(), "Nothing to scratch")
}

func TestClipboardSharerFallback(t *testing.T) {
	m := New(Options{Columns: 10, Settings: scratch.DefaultSettings()})
	assert.Nil(t, m.sharer, "no clipboard means no share target")
	assert.Nil(t, m.copyCmd())
	assert.Nil(t, m.shareCmd())
}
