package salesorder

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"shipdoc/internal/address"
)

const (
	defaultPageHeight = 792.0
	rowTolerance      = 2.0
	layoutCharWidth   = 5.0
	minCellWidth      = 10.0
	minCellHeight     = 6.0
)

// Page is the text of one PDF page in the forms the parser consumes.
type Page struct {
	Number int
	// Text is the plain text extraction.
	Text string
	// Layout keeps horizontal positions by padding with spaces, so two
	// columns printed side by side stay on one line.
	Layout string
	Words  []address.Word
	// Tables holds native table grids as rows of cell texts.
	Tables [][][]string
	Height float64
}

type Document struct {
	Pages []Page
}

func (d Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

func (d Document) LayoutText() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Layout)
	}
	return strings.Join(parts, "\n")
}

type glyph struct {
	s        string
	x, y, w  float64
	fontSize float64
}

type placedWord struct {
	address.Word
	x1, y float64
}

// ReadPDF extracts every page of a PDF. Reader panics on malformed input are
// returned as errors.
func ReadPDF(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, err
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		page := Page{Number: i, Height: pageHeight(p)}

		placed := pageWords(p, page.Height)
		for _, w := range placed {
			page.Words = append(page.Words, w.Word)
		}
		page.Layout = layoutText(placed)
		page.Tables = pageTables(p, placed)

		text, textErr := p.GetPlainText(nil)
		if textErr != nil || strings.TrimSpace(text) == "" {
			text = rowsText(placed)
		}
		page.Text = text
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func pageHeight(p pdf.Page) (h float64) {
	defer func() {
		if recover() != nil {
			h = defaultPageHeight
		}
	}()
	box := p.V.Key("MediaBox")
	if box.IsNull() {
		box = p.V.Key("Parent").Key("MediaBox")
	}
	if box.IsNull() || box.Len() != 4 {
		return defaultPageHeight
	}
	lly, ury := numberValue(box.Index(1)), numberValue(box.Index(3))
	if ury-lly <= 0 {
		return defaultPageHeight
	}
	return ury - lly
}

func numberValue(v pdf.Value) float64 {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64())
	case pdf.Real:
		return v.Float64()
	}
	return 0
}

// pageWords groups glyphs into rows by baseline and splits rows into words
// on whitespace glyphs or horizontal gaps.
func pageWords(p pdf.Page, height float64) (words []placedWord) {
	defer func() {
		if recover() != nil {
			words = nil
		}
	}()

	var glyphs []glyph
	for _, t := range p.Content().Text {
		if t.S == "" {
			continue
		}
		w := t.W
		if w <= 0 {
			w = t.FontSize * 0.5
		}
		glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: w, fontSize: t.FontSize})
	}
	return assembleWords(glyphs, height)
}

func assembleWords(glyphs []glyph, height float64) []placedWord {
	type row struct {
		y      float64
		glyphs []glyph
	}
	var rows []row
	for _, g := range glyphs {
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-g.y) < rowTolerance {
				rows[i].glyphs = append(rows[i].glyphs, g)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: g.y, glyphs: []glyph{g}})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var out []placedWord
	for _, r := range rows {
		gs := r.glyphs
		sort.SliceStable(gs, func(i, j int) bool { return gs[i].x < gs[j].x })

		var cur strings.Builder
		var start, end, fontSize float64
		flush := func() {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, placedWord{
					Word: address.Word{Text: s, X0: start, Top: height - (r.y + fontSize)},
					x1:   end,
					y:    r.y,
				})
			}
			cur.Reset()
		}
		for _, g := range gs {
			if strings.TrimSpace(g.s) == "" {
				flush()
				continue
			}
			if cur.Len() > 0 && g.x-end > math.Max(g.fontSize*0.3, 1) {
				flush()
			}
			if cur.Len() == 0 {
				start, fontSize = g.x, g.fontSize
			}
			cur.WriteString(g.s)
			end = g.x + g.w
		}
		flush()
	}
	return out
}

// layoutText renders words on a monospace grid, one output line per row.
func layoutText(words []placedWord) string {
	var lines []string
	var line []rune
	lastY := math.NaN()
	for _, w := range words {
		if math.IsNaN(lastY) || math.Abs(w.y-lastY) >= rowTolerance {
			if !math.IsNaN(lastY) {
				lines = append(lines, strings.TrimRight(string(line), " "))
			}
			line = line[:0]
			lastY = w.y
		}
		col := int(w.X0 / layoutCharWidth)
		if len(line) > 0 && col <= len(line) {
			col = len(line) + 1
		}
		for len(line) < col {
			line = append(line, ' ')
		}
		line = append(line, []rune(w.Text)...)
	}
	if !math.IsNaN(lastY) {
		lines = append(lines, strings.TrimRight(string(line), " "))
	}
	return strings.Join(lines, "\n")
}

func rowsText(words []placedWord) string {
	var lines []string
	var cur []string
	lastY := math.NaN()
	for _, w := range words {
		if !math.IsNaN(lastY) && math.Abs(w.y-lastY) >= rowTolerance {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
		}
		cur = append(cur, w.Text)
		lastY = w.y
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return strings.Join(lines, "\n")
}

type cell struct {
	minX, minY, maxX, maxY float64
}

func (c cell) contains(o cell) bool {
	return o.minX >= c.minX && o.maxX <= c.maxX && o.minY >= c.minY && o.maxY <= c.maxY
}

func (c cell) holds(x, y float64) bool {
	return x >= c.minX && x <= c.maxX && y >= c.minY && y <= c.maxY
}

func (c cell) area() float64 { return (c.maxX - c.minX) * (c.maxY - c.minY) }

func pageTables(p pdf.Page, words []placedWord) (tables [][][]string) {
	defer func() {
		if recover() != nil {
			tables = nil
		}
	}()
	var cells []cell
	for _, r := range p.Content().Rect {
		cells = append(cells, cell{
			minX: math.Min(r.Min.X, r.Max.X), maxX: math.Max(r.Min.X, r.Max.X),
			minY: math.Min(r.Min.Y, r.Max.Y), maxY: math.Max(r.Min.Y, r.Max.Y),
		})
	}
	if t := buildTable(cells, words); len(t) > 0 {
		return [][][]string{t}
	}
	return nil
}

// buildTable turns rectangles into a grid. Frames that enclose two or more
// other rectangles are dropped; each word lands in the smallest cell that
// holds its start point.
func buildTable(rects []cell, words []placedWord) [][]string {
	var candidates []cell
	for _, c := range rects {
		if c.maxX-c.minX >= minCellWidth && c.maxY-c.minY >= minCellHeight {
			candidates = append(candidates, c)
		}
	}
	var cells []cell
	for i, c := range candidates {
		inner := 0
		for j, o := range candidates {
			if i != j && c.contains(o) {
				inner++
			}
		}
		if inner < 2 {
			cells = append(cells, c)
		}
	}
	if len(cells) < 2 {
		return nil
	}

	texts := make([][]placedWord, len(cells))
	for _, w := range words {
		best := -1
		for i, c := range cells {
			if c.holds(w.X0+0.5, w.y+0.5) && (best < 0 || c.area() < cells[best].area()) {
				best = i
			}
		}
		if best >= 0 {
			texts[best] = append(texts[best], w)
		}
	}

	order := make([]int, len(cells))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := cells[order[a]], cells[order[b]]
		if math.Abs(ca.maxY-cb.maxY) >= rowTolerance {
			return ca.maxY > cb.maxY
		}
		return ca.minX < cb.minX
	})

	var table [][]string
	var rowTop float64
	for n, idx := range order {
		c := cells[idx]
		if n == 0 || math.Abs(c.maxY-rowTop) >= rowTolerance {
			table = append(table, nil)
			rowTop = c.maxY
		}
		table[len(table)-1] = append(table[len(table)-1], rowsText(texts[idx]))
	}
	if len(table) < 2 {
		return nil
	}
	return table
}
