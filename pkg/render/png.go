package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// PNGSurface rasterises frames. Drawing happens at Supersample times the
// frame size and is scaled down for smooth edges.
type PNGSurface struct {
	Supersample int

	font  *opentype.Font
	faces map[float64]font.Face
}

// NewPNGSurface creates a raster surface using the Go Regular font
func NewPNGSurface() (*PNGSurface, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &PNGSurface{
		Supersample: 2,
		font:        fnt,
		faces:       make(map[float64]font.Face),
	}, nil
}

// ContentType returns the MIME type of the output
func (s *PNGSurface) ContentType() string {
	return "image/png"
}

// Draw rasterises the frame and writes it as PNG
func (s *PNGSurface) Draw(w io.Writer, f *Frame) error {
	width, height := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame size %vx%v", f.Width, f.Height)
	}
	k := s.Supersample
	if k < 1 {
		k = 1
	}
	scale := float64(k)

	large := image.NewRGBA(image.Rect(0, 0, width*k, height*k))
	bg := mustColor(f.Background)
	if f.Background == "" {
		bg = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	draw.Draw(large, large.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	markers := make(map[string]MarkerDef)
	for _, c := range f.Commands {
		if m, ok := c.(MarkerDef); ok {
			markers[m.ID] = m
		}
	}

	for _, c := range f.Commands {
		switch c := c.(type) {
		case Line:
			from, to := c.From.Scale(scale), c.To.Scale(scale)
			col := mustColor(c.Color)
			fillSegment(large, from, to, c.Width*scale, col, c.Opacity)
			if m, ok := markers[c.MarkerEnd]; ok {
				fillArrow(large, from, to, m.Size*scale, mustColor(m.Color), c.Opacity)
			}
		case Circle:
			center := c.Center.Scale(scale)
			r := c.Radius * scale
			fillDisc(large, center, r, mustColor(c.Fill), c.Opacity)
			if c.Stroke != "" && c.StrokeWidth > 0 {
				sw := c.StrokeWidth * scale
				fillRing(large, center, r-sw/2, r+sw/2, mustColor(c.Stroke), c.Opacity)
			}
		case Text:
			if err := s.drawText(large, c, scale); err != nil {
				return err
			}
		}
	}

	final := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Over, nil)
	return png.Encode(w, final)
}

func (s *PNGSurface) face(size float64) (font.Face, error) {
	size = math.Max(1, math.Round(size*2)/2)
	if f, ok := s.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	s.faces[size] = f
	return f, nil
}

func (s *PNGSurface) drawText(img *image.RGBA, t Text, scale float64) error {
	face, err := s.face(t.Size * scale)
	if err != nil {
		return err
	}
	c := mustColor(t.Color)
	c.A = uint8(float64(c.A) * flowgraph.Clamp(t.Opacity, 0, 1))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(t.Position.X * scale)),
			Y: fixed.I(int(t.Position.Y * scale)),
		},
	}
	d.DrawString(t.Content)
	return nil
}

// blend mixes c over the pixel at (x, y) with the given opacity
func blend(img *image.RGBA, x, y int, c color.RGBA, opacity float64) {
	a := float64(c.A) / 255 * opacity
	if a <= 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	mix := func(s, d uint8) uint8 {
		return uint8(math.Round(float64(s)*a + float64(d)*(1-a)))
	}
	img.SetRGBA(x, y, color.RGBA{R: mix(c.R, dst.R), G: mix(c.G, dst.G), B: mix(c.B, dst.B), A: 255})
}

// eachPixel calls fn for pixel centers inside the clipped box
func eachPixel(img *image.RGBA, minX, minY, maxX, maxY float64, fn func(x, y int, p flowgraph.Vec)) {
	b := img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(minX)))
	y0 := max(b.Min.Y, int(math.Floor(minY)))
	x1 := min(b.Max.X-1, int(math.Ceil(maxX)))
	y1 := min(b.Max.Y-1, int(math.Ceil(maxY)))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fn(x, y, flowgraph.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5})
		}
	}
}

func fillDisc(img *image.RGBA, center flowgraph.Vec, r float64, c color.RGBA, opacity float64) {
	fillRing(img, center, 0, r, c, opacity)
}

func fillRing(img *image.RGBA, center flowgraph.Vec, inner, outer float64, c color.RGBA, opacity float64) {
	if outer <= 0 {
		return
	}
	in2, out2 := inner*inner, outer*outer
	if inner < 0 {
		in2 = -1
	}
	eachPixel(img, center.X-outer, center.Y-outer, center.X+outer, center.Y+outer, func(x, y int, p flowgraph.Vec) {
		d := p.Sub(center)
		l2 := d.X*d.X + d.Y*d.Y
		if l2 <= out2 && l2 >= in2 {
			blend(img, x, y, c, opacity)
		}
	})
}

func fillSegment(img *image.RGBA, a, b flowgraph.Vec, width float64, c color.RGBA, opacity float64) {
	half := math.Max(width, 1) / 2
	eachPixel(img,
		math.Min(a.X, b.X)-half, math.Min(a.Y, b.Y)-half,
		math.Max(a.X, b.X)+half, math.Max(a.Y, b.Y)+half,
		func(x, y int, p flowgraph.Vec) {
			if distanceToSegment(p, a, b) <= half {
				blend(img, x, y, c, opacity)
			}
		})
}

// fillArrow draws a filled arrowhead whose tip sits at the segment's end
func fillArrow(img *image.RGBA, from, to flowgraph.Vec, size float64, c color.RGBA, opacity float64) {
	seg := to.Sub(from)
	l := seg.Len()
	if l < 1e-9 || size <= 0 {
		return
	}
	u := seg.Scale(1 / l)
	n := flowgraph.Vec{X: -u.Y, Y: u.X}
	base := to.Sub(u.Scale(size))
	p1 := base.Add(n.Scale(size / 2))
	p2 := base.Sub(n.Scale(size / 2))

	eachPixel(img,
		math.Min(to.X, math.Min(p1.X, p2.X)), math.Min(to.Y, math.Min(p1.Y, p2.Y)),
		math.Max(to.X, math.Max(p1.X, p2.X)), math.Max(to.Y, math.Max(p1.Y, p2.Y)),
		func(x, y int, p flowgraph.Vec) {
			if inTriangle(p, to, p1, p2) {
				blend(img, x, y, c, opacity)
			}
		})
}

func inTriangle(p, a, b, c flowgraph.Vec) bool {
	cross := func(o, u, v flowgraph.Vec) float64 {
		return (u.X-o.X)*(v.Y-o.Y) - (u.Y-o.Y)*(v.X-o.X)
	}
	d1 := cross(p, a, b)
	d2 := cross(p, b, c)
	d3 := cross(p, c, a)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}
