package chart

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

// Renderer turns a figure into an embeddable fragment.
type Renderer interface {
	Render(fig *Figure) (string, error)
}

// HTMLRenderer emits a div plus an inline Plotly.newPlot call. When PlotlyCDN
// is set the fragment also loads the library from that URL.
type HTMLRenderer struct {
	PlotlyCDN string
}

func (r HTMLRenderer) Render(fig *Figure) (string, error) {
	if fig == nil {
		return "", nil
	}
	payload, err := fig.JSON()
	if err != nil {
		return "", fmt.Errorf("chart: encode figure: %w", err)
	}
	id := "chart-" + uuid.NewString()

	nodes := g.Group{}
	if r.PlotlyCDN != "" {
		nodes = append(nodes, html.Script(html.Src(r.PlotlyCDN), g.Attr("charset", "utf-8")))
	}
	nodes = append(nodes,
		html.Div(
			html.ID(id),
			html.Class("plotly-graph-div"),
			html.Style(fmt.Sprintf("height:%dpx; width:100%%;", fig.Height())),
		),
		html.Script(g.Raw(fmt.Sprintf(
			`(function(){var fig=%s;Plotly.newPlot(%q,fig.data,fig.layout,{"responsive":true});})();`,
			payload, id,
		))),
	)

	var buf bytes.Buffer
	if err := nodes.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
