package report

import (
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	pageWidth    = 190.0
	bodyFontSize = 9.0
	cellLineH    = 4.0
	maxCellLines = 3
)

// pdfWriter walks a goldmark AST and drives fpdf. It handles the node
// kinds the report markdown actually produces: headings, paragraphs,
// emphasis, lists and tables.
type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) render(doc ast.Node) error {
	return ast.Walk(doc, w.walk)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		w.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			w.pdf.Ln(6)
		}
	case ast.KindText:
		if entering {
			w.pdf.Write(5, string(n.Text(w.source)))
		}
	case ast.KindEmphasis:
		w.emphasis(n.(*ast.Emphasis), entering)
	case ast.KindList:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(4)
			}
		}
	case ast.KindListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(12 + float64(w.listDepth)*4)
			w.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			w.pdf.Ln(3)
			w.pdf.Line(12, w.pdf.GetY(), 198, w.pdf.GetY())
			w.pdf.Ln(3)
		}
	case extast.KindTable:
		if entering {
			w.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont("Arial", style, bodyFontSize)
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(5)
		size := 10.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12
		case 3:
			size = 10.5
		}
		w.pdf.SetFont("Arial", "B", size)
		return
	}
	w.pdf.Ln(7)
	w.setFont()
}

func (w *pdfWriter) emphasis(n *ast.Emphasis, entering bool) {
	if n.Level == 2 {
		w.bold = entering
	} else {
		w.italic = entering
	}
	w.setFont()
}

// table flattens a goldmark table into rows and renders them as a
// bordered grid. Header cells come from the TableHeader node, body
// cells from the TableRow children.
func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *extast.TableHeader:
			for tr := t.FirstChild(); tr != nil; tr = tr.NextSibling() {
				if row, ok := tr.(*extast.TableRow); ok {
					rows = append(rows, w.tableRow(row))
				}
			}
			// A header may hold its cells directly rather than via a row
			if t.FirstChild() != nil {
				if _, ok := t.FirstChild().(*extast.TableCell); ok {
					rows = append(rows, w.tableRow(t))
				}
			}
		case *extast.TableRow:
			rows = append(rows, w.tableRow(t))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	w.pdf.Ln(2)
	widths := w.columnWidths(rows)

	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont("Arial", "B", 8)
			w.pdf.SetFillColor(232, 232, 232)
		} else {
			w.pdf.SetFont("Arial", "", 8)
			w.pdf.SetFillColor(255, 255, 255)
		}

		// Wrap each cell and size the row to the tallest one.
		wrapped := make([][]string, len(row))
		maxLines := 1
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			lines := w.pdf.SplitText(cell, widths[j]-2)
			if len(lines) > maxCellLines {
				lines = lines[:maxCellLines]
			}
			if len(lines) == 0 {
				lines = []string{""}
			}
			wrapped[j] = lines
			if len(lines) > maxLines {
				maxLines = len(lines)
			}
		}
		rowHeight := float64(maxLines)*cellLineH + 2

		startX := w.pdf.GetX()
		startY := w.pdf.GetY()
		if startY+rowHeight > 282 {
			w.pdf.AddPage()
			startY = w.pdf.GetY()
		}

		x := startX
		for j := range row {
			if j >= len(widths) {
				break
			}
			fill := i == 0
			w.pdf.Rect(x, startY, widths[j], rowHeight, rectStyle(fill))
			w.pdf.SetXY(x+1, startY+1)
			for _, line := range wrapped[j] {
				w.pdf.CellFormat(widths[j]-2, cellLineH, line, "", 2, "L", false, 0, "")
			}
			x += widths[j]
		}
		w.pdf.SetXY(startX, startY+rowHeight)
	}

	w.pdf.Ln(3)
	w.setFont()
}

func (w *pdfWriter) tableRow(n ast.Node) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(w.source)))
		}
	}
	return row
}

// columnWidths sizes each column to its widest cell, clamped, then
// scales the set to fill the page width.
func (w *pdfWriter) columnWidths(rows [][]string) []float64 {
	cols := len(rows[0])
	widths := make([]float64, cols)

	w.pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for j, cell := range row {
			if j >= cols {
				break
			}
			cw := w.pdf.GetStringWidth(cell) + 4
			if cw > widths[j] {
				widths[j] = cw
			}
		}
	}

	total := 0.0
	for j := range widths {
		if widths[j] < 14 {
			widths[j] = 14
		}
		if widths[j] > pageWidth/2 {
			widths[j] = pageWidth / 2
		}
		total += widths[j]
	}

	scale := pageWidth / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

func rectStyle(fill bool) string {
	if fill {
		return "FD"
	}
	return "D"
}
