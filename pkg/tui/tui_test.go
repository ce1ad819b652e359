package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/session"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestMenuNavigation(t *testing.T) {
	m := New(Options{Settings: notes.DefaultSettings()})

	m = press(t, m, "down", "down", "up")
	assert.Equal(t, 1, m.menuIndex)

	m = press(t, m, "up", "up", "up")
	assert.Equal(t, 0, m.menuIndex)

	m = press(t, m, "down", "enter")
	assert.Equal(t, StateFilePicker, m.state)
	assert.Equal(t, ActionClean, m.action.Action)
	assert.Equal(t, []string{".mid", ".midi", ".json"}, m.filePicker.AllowedTypes)

	m = press(t, m, "esc")
	assert.Equal(t, StateMenu, m.state)
}

func tweakModel(t *testing.T) Model {
	t.Helper()
	sess, err := session.New(session.Options{Root: t.TempDir(), PreviewDelay: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	settings := notes.DefaultSettings()
	cleaned := sess.Load([]notes.NoteEvent{
		notes.New(0, 0.5, 60, 100),
		notes.New(0.52, 1.0, 60, 100),
		notes.New(0, 1, 64, 100),
	}, settings)

	m := New(Options{Settings: settings})
	m.state = StateTweak
	m.sess = sess
	m.notes = cleaned
	return m
}

func TestTweakReappliesSettings(t *testing.T) {
	m := tweakModel(t)
	require.Len(t, m.notes, 2) // 20ms gap merged by the 30ms default

	m = press(t, m, "-")
	assert.Equal(t, 88, m.settings.Velocity)
	for _, n := range m.notes {
		assert.Equal(t, 88, n.Velocity)
	}

	m = press(t, m, "[", "[", "[")
	assert.Equal(t, 0, m.settings.MergeGapMS)
	assert.Len(t, m.notes, 3)

	m = press(t, m, "<", "<", "<", "<", "<", "<", "<", "<", "<", ">")
	assert.Equal(t, 2, m.settings.MaxPolyphony)

	m = press(t, m, "z", "g")
	assert.True(t, m.settings.Quantize)
	assert.Equal(t, "1/32", m.settings.QuantizeGrid)

	assert.Contains(t, m.View(), "notes")
}

func TestTweakEscClosesSession(t *testing.T) {
	m := tweakModel(t)
	dir := m.sess.Dir()

	m = press(t, m, "esc")
	assert.Equal(t, StateMenu, m.state)
	assert.Nil(t, m.sess)
	assert.NoDirExists(t, dir)
}

func TestNextGrid(t *testing.T) {
	assert.Equal(t, "1/8", nextGrid("1/4"))
	assert.Equal(t, "1/4", nextGrid("1/32"))
	assert.Equal(t, "1/4", nextGrid("bogus"))
}
