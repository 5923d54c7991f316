// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xdraw "golang.org/x/image/draw"
)

// Terminal previews frames inside the terminal as truecolor half-block
// cells, one character per two vertical pixels. 'q' or ctrl+c quits, which
// closes Done and lets the pipeline wind down.
type Terminal struct {
	prog *tea.Program
	done chan struct{}
	once sync.Once
}

var _ Surface = (*Terminal)(nil)

// NewTerminal starts the preview program on the alt screen.
func NewTerminal() *Terminal {
	t := &Terminal{done: make(chan struct{})}
	t.prog = tea.NewProgram(newTerminalModel(), tea.WithAltScreen())

	go func() {
		defer t.once.Do(func() { close(t.done) })
		if _, err := t.prog.Run(); err != nil {
			// The pipeline sees the closed Done channel and stops; the
			// error itself surfaces through Close.
			return
		}
	}()

	return t
}

// Present hands the preview loop its own copy of the frame. The bubbletea
// goroutine may still be drawing the previous message when the next one
// arrives, so sent frames are never recycled.
func (t *Terminal) Present(img *image.RGBA) error {
	t.prog.Send(frameMsg{img: cloneFrame(img)})
	return nil
}

// cloneFrame snapshots a frame the receiver can own outright.
func cloneFrame(img *image.RGBA) *image.RGBA {
	buf := image.NewRGBA(img.Bounds())
	copy(buf.Pix, img.Pix)
	return buf
}

// Done closes when the user quits the preview.
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

// Close shuts the preview down and waits for the program to exit.
func (t *Terminal) Close() error {
	t.prog.Quit()
	<-t.done
	return nil
}

type frameMsg struct {
	img *image.RGBA
}

type keyMap struct {
	Quit key.Binding
}

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFDF5")).
	Background(lipgloss.Color("#3C3C3C")).
	Padding(0, 1)

// terminalModel is the bubbletea model behind the preview.
type terminalModel struct {
	keys   keyMap
	cols   int
	rows   int
	frame  *image.RGBA
	frames uint64
}

func newTerminalModel() terminalModel {
	return terminalModel{
		keys: keyMap{
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

func (m terminalModel) Init() tea.Cmd {
	return nil
}

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	case frameMsg:
		m.frame = msg.img
		m.frames++
	}
	return m, nil
}

func (m terminalModel) View() string {
	if m.frame == nil || m.cols < 2 || m.rows < 2 {
		return "waiting for frames..."
	}

	rows := m.rows - 1 // last line is the status bar
	cols := m.cols

	// Downscale to one pixel per half-cell.
	want := image.Rect(0, 0, cols, rows*2)
	scratch := image.NewRGBA(want)
	xdraw.NearestNeighbor.Scale(scratch, want, m.frame, m.frame.Bounds(), xdraw.Src, nil)

	var b strings.Builder
	b.WriteString(renderHalfBlocks(scratch, cols, rows))

	src := m.frame.Bounds()
	b.WriteString(statusStyle.Render(
		fmt.Sprintf("%dx%d | frame %d | q to quit", src.Dx(), src.Dy(), m.frames)))
	return b.String()
}

// renderHalfBlocks draws a cols x rows*2 pixel image as rows lines of '▀'
// cells, foreground carrying the upper pixel and background the lower.
func renderHalfBlocks(img *image.RGBA, cols, rows int) string {
	var b strings.Builder
	b.Grow(rows * cols * 40)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := img.RGBAAt(x, y*2)
			bottom := img.RGBAAt(x, y*2+1)
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		b.WriteString("\x1b[0m\n")
	}
	return b.String()
}
