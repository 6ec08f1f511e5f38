package inspect

import "github.com/danmuck/gridlink/internal/grid"

type GridInfo struct {
	ID       int     `json:"id"`
	Window   int64   `json:"window"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Row      float64 `json:"row"`
	Col      float64 `json:"col"`
	Placed   bool    `json:"placed"`
	Floating bool    `json:"floating"`
	Message  bool    `json:"message"`
	Hidden   bool    `json:"hidden"`
	External bool    `json:"external"`
	ZIndex   int     `json:"zindex,omitempty"`
}

type GridDetail struct {
	GridInfo
	Lines    []string      `json:"lines"`
	Attrs    [][]int       `json:"attrs,omitempty"`
	Viewport grid.Viewport `json:"viewport"`
}

type HighlightInfo struct {
	ID         int      `json:"id"`
	Foreground string   `json:"foreground"`
	Background string   `json:"background"`
	Special    string   `json:"special"`
	Style      string   `json:"style"`
	Blend      int      `json:"blend"`
	Kind       string   `json:"kind"`
	Groups     []string `json:"groups,omitempty"`
}

type PendingInfo struct {
	ID       uint64 `json:"id"`
	Method   string `json:"method"`
	Blocking bool   `json:"blocking"`
	Age      string `json:"age"`
}

func gridInfo(g grid.Grid) GridInfo {
	info := GridInfo{
		ID:       g.ID,
		Window:   g.Window,
		Width:    g.Width,
		Height:   g.Height,
		Row:      g.Row,
		Col:      g.Col,
		Placed:   g.Placed,
		Floating: g.Floating,
		Message:  g.Message,
		Hidden:   g.Hidden,
		External: g.External,
	}
	switch {
	case g.Floating:
		info.ZIndex = g.Float.ZIndex
	case g.Message:
		info.ZIndex = g.MsgZ
	}
	return info
}

// gridDetail renders rows as text; wide characters keep their continuation
// column out of the text. withAttrs adds the per-cell attribute ids.
func gridDetail(g grid.Grid, withAttrs bool) GridDetail {
	d := GridDetail{
		GridInfo: gridInfo(g),
		Lines:    make([]string, g.Height),
		Viewport: g.Viewport,
	}
	for row := 0; row < g.Height; row++ {
		d.Lines[row] = g.Text(row)
	}
	if withAttrs {
		d.Attrs = make([][]int, g.Height)
		for row := 0; row < g.Height; row++ {
			cells := g.RowCells(row)
			ids := make([]int, len(cells))
			for i, c := range cells {
				ids[i] = c.AttrID
			}
			d.Attrs[row] = ids
		}
	}
	return d
}
