// Package pdf implementa el reporte imprimible del estado del portafolio.
//
// Layout de la página A4 horizontal:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título                    │  Fecha de generación   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: País | Productos | Sets | No numéricos            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DETALLE: Procedimiento | Tipo | Producto | País | Estado   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
)

var _ portfolio.ReportRenderer = (*Renderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// Renderer implementa portfolio.ReportRenderer usando Maroto v2.
type Renderer struct {
	author string
}

// NewRenderer construye el renderer. author se escribe en los metadatos del PDF.
func NewRenderer(author string) *Renderer { return &Renderer{author: author} }

// Render genera el PDF del reporte y devuelve sus bytes.
func (r *Renderer) Render(rep portfolio.Report) ([]byte, error) {
	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(rep.Title, true)
	if r.author != "" {
		b = b.WithAuthor(r.author, true)
	}
	m := maroto.New(b.Build())

	m.AddRows(headerRow(rep))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionRow("RESUMEN POR PAÍS"))
	m.AddRows(summaryHeaderRow())
	m.AddRows(summaryRows(rep)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionRow("DETALLE"))
	m.AddRows(detailHeaderRow())
	m.AddRows(detailRows(rep)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(rep portfolio.Report) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New(rep.Title, props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+rep.GeneratedAt.Format("02/01/2006 15:04 MST"), props.Text{
				Size: 8, Align: align.Right, Top: 3, Color: colorGray,
			}),
		),
	)
}

func sectionRow(title string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2}),
	))
}

// headerCells cabecera de tabla: etiquetas en blanco sobre la franja primaria.
func headerCells(cells ...headerCell) core.Row {
	cols := make([]core.Col, 0, len(cells))
	for _, c := range cells {
		cols = append(cols, col.New(c.size).Add(text.New(c.label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: c.align,
			Color: colorWhite, Top: 1.5, Left: 1, Right: 1,
		})))
	}
	return row.New(7).Add(cols...).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

type headerCell struct {
	label string
	size  int
	align align.Type
}

func summaryHeaderRow() core.Row {
	return headerCells(
		headerCell{"País", 6, align.Left},
		headerCell{"Productos", 2, align.Center},
		headerCell{"Sets", 2, align.Right},
		headerCell{"No numéricos", 2, align.Center},
	)
}

func summaryRows(rep portfolio.Report) []core.Row {
	rows := make([]core.Row, 0, len(rep.Countries)+1)
	for _, c := range rep.Countries {
		rows = append(rows, row.New(6).Add(
			col.New(6).Add(text.New(nonEmpty(c.CountryName, c.CountryID), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(strconv.Itoa(c.Products), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(formatQty(c.Sets.String()), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(strconv.Itoa(c.NonNumeric), props.Text{Size: 8, Align: align.Center, Top: 1})),
		))
	}
	rows = append(rows, row.New(7).Add(
		col.New(6).Add(text.New("TOTAL", props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 1, Left: 1})),
		col.New(2),
		col.New(2).Add(text.New(formatQty(rep.TotalSets.String()), props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1, Right: 1,
		})),
		col.New(2),
	))
	return rows
}

func detailHeaderRow() core.Row {
	return headerCells(
		headerCell{"Procedimiento", 2, align.Left},
		headerCell{"Tipo", 2, align.Left},
		headerCell{"Producto", 3, align.Left},
		headerCell{"País", 2, align.Left},
		headerCell{"Estado", 2, align.Left},
		headerCell{"Sets", 1, align.Right},
	)
}

// detailRows una fila por (producto, país). Los productos sin asignaciones salen con "—".
func detailRows(rep portfolio.Report) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7.5, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	var rows []core.Row
	for _, v := range rep.Rows {
		if len(v.CountryStatuses) == 0 {
			rows = append(rows, row.New(5).Add(
				cell(v.Procedure, 2, align.Left),
				cell(v.ProductType, 2, align.Left),
				cell(v.Product, 3, align.Left),
				cell("—", 2, align.Left),
				cell("—", 2, align.Left),
				cell("", 1, align.Right),
			))
			continue
		}
		for _, cs := range v.CountryStatuses {
			status := cs.StatusName
			if cs.StatusCode != "" {
				status = cs.StatusCode + " " + status
			}
			rows = append(rows, row.New(5).Add(
				cell(v.Procedure, 2, align.Left),
				cell(v.ProductType, 2, align.Left),
				cell(v.Product, 3, align.Left),
				cell(nonEmpty(cs.CountryName, cs.CountryID), 2, align.Left),
				cell(status, 2, align.Left),
				cell(cs.SetsQty, 1, align.Right),
			))
		}
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatQty inserta puntos de miles en la parte entera y deja la fracción tras una coma.
// Ej: "25000" → "25.000", "1234.5" → "1.234,5"
func formatQty(s string) string {
	neg := len(s) > 0 && s[0] == '-'
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i+1:]
			break
		}
	}
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+len(frac)+2)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	if frac != "" {
		buf = append(buf, ',')
		buf = append(buf, frac...)
	}
	return string(buf)
}
