package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/james-see/wavenotes/pkg/notes"
)

var grids = []string{"1/4", "1/8", "1/16", "1/32"}

// maxListed is how many notes the tweak screen lists
const maxListed = 12

func (m Model) updateTweak(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.settings

	switch msg.String() {
	case "+", "=":
		s.Velocity = min(127, s.Velocity+8)
	case "-", "_":
		s.Velocity = max(1, s.Velocity-8)
	case "]":
		s.MergeGapMS += 10
	case "[":
		s.MergeGapMS = max(0, s.MergeGapMS-10)
	case ".":
		s.MinNoteMS += 10
	case ",":
		s.MinNoteMS = max(0, s.MinNoteMS-10)
	case ">":
		s.MaxPolyphony++
	case "<":
		s.MaxPolyphony = max(0, s.MaxPolyphony-1)
	case "z":
		s.Quantize = !s.Quantize
	case "g":
		s.QuantizeGrid = nextGrid(s.QuantizeGrid)
	case "}":
		s.QuantizeStrength = min(100, s.QuantizeStrength+10)
	case "{":
		s.QuantizeStrength = max(0, s.QuantizeStrength-10)
	case "e":
		return m, m.exportMIDI()
	case "esc":
		m.closeSession()
		m.state = StateMenu
		m.notes = nil
		return m, nil
	case "q", "ctrl+c":
		m.closeSession()
		return m, tea.Quit
	default:
		return m, nil
	}

	if s == m.settings || m.sess == nil {
		return m, nil
	}
	cleaned, err := m.sess.Reapply(s)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.settings = s
	m.notes = cleaned
	m.status = ""
	return m, nil
}

func nextGrid(current string) string {
	for i, g := range grids {
		if g == current {
			return grids[(i+1)%len(grids)]
		}
	}
	return grids[0]
}

func (m Model) exportMIDI() tea.Cmd {
	sess, tempo := m.sess, m.opts.Tempo
	out := strings.TrimSuffix(m.selectedFile, filepath.Ext(m.selectedFile)) + ".mid"
	return func() tea.Msg {
		if sess == nil {
			return conversionDoneMsg{err: fmt.Errorf("nothing to export")}
		}
		if _, err := sess.ExportMIDI(out, tempo); err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{outputFile: out}
	}
}

func (m Model) viewTweak() string {
	var s strings.Builder
	st := m.settings

	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s ", filepath.Base(m.selectedFile))))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("velocity %-4d  merge gap %dms  min note %dms  polyphony %d\n",
		st.Velocity, st.MergeGapMS, st.MinNoteMS, st.MaxPolyphony))
	quant := "off"
	if st.Quantize {
		quant = fmt.Sprintf("%s @ %d BPM, %d%%", st.QuantizeGrid, st.QuantizeBPM, st.QuantizeStrength)
	}
	s.WriteString(fmt.Sprintf("quantize %s\n\n", quant))

	s.WriteString(successStyle.Render(fmt.Sprintf("%d notes", len(m.notes))))
	s.WriteString("\n")
	for i, n := range m.notes {
		if i == maxListed {
			s.WriteString(menuStyle.Render(fmt.Sprintf("… %d more", len(m.notes)-maxListed)))
			s.WriteString("\n")
			break
		}
		s.WriteString(menuStyle.Render(fmt.Sprintf("%-4s %7.3fs → %7.3fs  vel %d", notes.PitchName(n.Pitch), n.Start, n.End, n.Velocity)))
		s.WriteString("\n")
	}

	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("+/-: velocity • [/]: merge gap • ,/.: min note • </>: polyphony\nz: quantize • g: grid • {/}: strength • e: export MIDI • esc: menu"))

	return boxStyle.Render(s.String())
}
