package main

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// writeSVG draws view as a standalone SVG document. Each region carries its
// name as a <title> so viewers show it on hover.
func writeSVG(w io.Writer, view domain.BoundaryView, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		view.Width, view.Height, view.Width, view.Height)
	if title != "" {
		fmt.Fprintf(bw, "  <title>%s</title>\n", html.EscapeString(title))
	}
	for _, r := range view.Regions {
		if r.D == "" {
			continue
		}
		fmt.Fprintf(bw, `  <path d="%s" fill="%s" stroke="%s" stroke-width="0.5" fill-rule="evenodd" data-state="%s"><title>%s</title></path>`+"\n",
			r.D,
			html.EscapeString(r.Fill),
			html.EscapeString(r.Stroke),
			r.State,
			html.EscapeString(r.Name),
		)
	}
	fmt.Fprintln(bw, "</svg>")
	return bw.Flush()
}
