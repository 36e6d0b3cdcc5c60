package render

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// Surface writes a frame in some output format
type Surface interface {
	Draw(w io.Writer, f *Frame) error
	ContentType() string
}

// SVGSurface renders frames as standalone SVG documents
type SVGSurface struct {
	FontFamily string
}

// NewSVGSurface creates an SVG surface with a sans-serif font
func NewSVGSurface() *SVGSurface {
	return &SVGSurface{FontFamily: "sans-serif"}
}

// ContentType returns the MIME type of the output
func (s *SVGSurface) ContentType() string {
	return "image/svg+xml"
}

// Draw writes the frame as an SVG document
func (s *SVGSurface) Draw(w io.Writer, f *Frame) error {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(f.Width), num(f.Height), num(f.Width), num(f.Height))
	if f.Background != "" {
		fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", attr(f.Background))
	}

	b.WriteString("<defs>\n")
	for _, c := range f.Commands {
		if m, ok := c.(MarkerDef); ok {
			fmt.Fprintf(&b, `<marker id="%s" viewBox="0 0 10 10" refX="10" refY="5" markerUnits="userSpaceOnUse" markerWidth="%s" markerHeight="%s" orient="auto">`,
				attr(m.ID), num(m.Size), num(m.Size))
			fmt.Fprintf(&b, `<path d="M0,0L10,5L0,10z" fill="%s"/></marker>`+"\n", attr(m.Color))
		}
	}
	b.WriteString("</defs>\n")

	for _, c := range f.Commands {
		switch c := c.(type) {
		case Line:
			fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s" opacity="%s"`,
				num(c.From.X), num(c.From.Y), num(c.To.X), num(c.To.Y), attr(c.Color), num(c.Width), num(c.Opacity))
			if c.MarkerEnd != "" {
				fmt.Fprintf(&b, ` marker-end="url(#%s)"`, attr(c.MarkerEnd))
			}
			b.WriteString("/>\n")
		case Circle:
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s" opacity="%s"`,
				num(c.Center.X), num(c.Center.Y), num(c.Radius), attr(c.Fill), num(c.Opacity))
			if c.Stroke != "" && c.StrokeWidth > 0 {
				fmt.Fprintf(&b, ` stroke="%s" stroke-width="%s"`, attr(c.Stroke), num(c.StrokeWidth))
			}
			fmt.Fprintf(&b, `><title>%s</title></circle>`+"\n", html.EscapeString(c.NodeID))
		case Text:
			fmt.Fprintf(&b, `<text x="%s" y="%s" font-family="%s" font-size="%s" fill="%s" opacity="%s">%s</text>`+"\n",
				num(c.Position.X), num(c.Position.Y), attr(s.FontFamily), num(c.Size), attr(c.Color), num(c.Opacity),
				html.EscapeString(c.Content))
		}
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func attr(s string) string {
	return html.EscapeString(s)
}
