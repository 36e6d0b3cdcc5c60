package main

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
)

// cell is one character of a terminal frame
type cell struct {
	r     rune
	color string
	faint bool
	bold  bool
}

// TerminalSurface draws frames as a character grid. Each cell covers
// CellWidth x CellHeight screen pixels of the frame.
type TerminalSurface struct {
	CellWidth  float64
	CellHeight float64
	// Plain disables colour escapes
	Plain bool
}

// NewTerminalSurface returns a surface for the usual 1:2 terminal cell
func NewTerminalSurface() *TerminalSurface {
	return &TerminalSurface{CellWidth: 8, CellHeight: 16}
}

// ContentType returns the MIME type of the output
func (s *TerminalSurface) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Size returns the grid dimensions for a frame of the given pixel size
func (s *TerminalSurface) Size(width, height float64) (cols, rows int) {
	return int(math.Ceil(width / s.CellWidth)), int(math.Ceil(height / s.CellHeight))
}

// Draw writes the frame as rows of text
func (s *TerminalSurface) Draw(w io.Writer, f *render.Frame) error {
	cols, rows := s.Size(f.Width, f.Height)
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("terminal surface: empty frame %vx%v", f.Width, f.Height)
	}
	grid := s.rasterise(f, cols, rows)

	bw := bufio.NewWriter(w)
	for y, row := range grid {
		for x := 0; x < len(row); {
			run := x
			for run < len(row) && sameStyle(row[run], row[x]) {
				run++
			}
			text := make([]rune, 0, run-x)
			for _, c := range row[x:run] {
				text = append(text, c.r)
			}
			bw.WriteString(s.style(row[x]).Render(string(text)))
			x = run
		}
		if y < len(grid)-1 {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func sameStyle(a, b cell) bool {
	return a.color == b.color && a.faint == b.faint && a.bold == b.bold
}

func (s *TerminalSurface) style(c cell) lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.Plain || c.color == "" {
		return st
	}
	return st.Foreground(lipgloss.Color(c.color)).Faint(c.faint).Bold(c.bold)
}

func (s *TerminalSurface) rasterise(f *render.Frame, cols, rows int) [][]cell {
	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}
	put := func(x, y int, c cell) {
		if x >= 0 && y >= 0 && x < cols && y < rows {
			grid[y][x] = c
		}
	}
	toCell := func(p flowgraph.Vec) (int, int) {
		return int(math.Floor(p.X / s.CellWidth)), int(math.Floor(p.Y / s.CellHeight))
	}

	for _, cmd := range f.Commands {
		switch c := cmd.(type) {
		case render.Line:
			x0, y0 := toCell(c.From)
			x1, y1 := toCell(c.To)
			glyph := lineGlyph(c.To.Sub(c.From))
			walkCells(x0, y0, x1, y1, func(x, y int) {
				put(x, y, cell{r: glyph, color: c.Color, faint: c.Opacity < 0.5})
			})
			if c.MarkerEnd != "" {
				put(x1, y1, cell{r: arrowGlyph(c.To.Sub(c.From)), color: c.Color, faint: c.Opacity < 0.5})
			}
		case render.Circle:
			cx, cy := toCell(c.Center)
			rx := int(c.Radius / s.CellWidth)
			ry := int(c.Radius / s.CellHeight)
			for y := cy - ry; y <= cy+ry; y++ {
				for x := cx - rx; x <= cx+rx; x++ {
					center := flowgraph.Vec{X: (float64(x) + 0.5) * s.CellWidth, Y: (float64(y) + 0.5) * s.CellHeight}
					if x == cx && y == cy || center.Sub(c.Center).Len() <= c.Radius {
						put(x, y, cell{r: '●', color: c.Fill, faint: c.Opacity < 0.5, bold: c.Stroke != ""})
					}
				}
			}
		case render.Text:
			x, y := toCell(c.Position)
			for i, r := range []rune(c.Content) {
				put(x+i, y, cell{r: r, color: c.Color, faint: c.Opacity < 0.5})
			}
		}
	}
	return grid
}

// walkCells visits the cells of a Bresenham line
func walkCells(x0, y0, x1, y1 int, fn func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		fn(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func lineGlyph(d flowgraph.Vec) rune {
	angle := math.Atan2(-d.Y, d.X) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return '─'
	case angle < 67.5:
		return '╱'
	case angle < 112.5:
		return '│'
	default:
		return '╲'
	}
}

func arrowGlyph(d flowgraph.Vec) rune {
	if math.Abs(d.X) >= math.Abs(d.Y) {
		if d.X >= 0 {
			return '▶'
		}
		return '◀'
	}
	if d.Y >= 0 {
		return '▼'
	}
	return '▲'
}
