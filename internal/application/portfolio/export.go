package portfolio

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

var csvHeader = []string{
	"category", "procedure", "productType", "product", "productTier", "productLifeCycle",
	"countryId", "countryName", "statusCode", "statusName", "setsQty", "lastUpdated",
}

// ExportCSV escribe la vista con una línea por producto y país asignado.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.GetPortfolioStatusView(ctx)
	if err != nil {
		return err
	}
	return WriteCSV(w, rows)
}

// WriteCSV serializa filas de la vista en CSV.
func WriteCSV(w io.Writer, rows []entity.PortfolioStatusView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		for _, cs := range r.CountryStatuses {
			last := ""
			if !cs.LastUpdated.IsZero() {
				last = cs.LastUpdated.UTC().Format(time.RFC3339)
			}
			if err := cw.Write([]string{
				r.Category, r.Procedure, r.ProductType, r.Product, r.ProductTier, r.ProductLifeCycle,
				cs.CountryID, cs.CountryName, cs.StatusCode, cs.StatusName, cs.SetsQty, last,
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ─── Snapshot ────────────────────────────────────────────────────────────────

type snapshotDoc struct {
	GeneratedAt time.Time                    `json:"generatedAt"`
	Rows        []entity.PortfolioStatusView `json:"rows"`
}

// ExportSnapshot guarda la vista actual como JSON en el SnapshotSink configurado.
func (s *Service) ExportSnapshot(ctx context.Context) (string, error) {
	if s.sink == nil {
		return "", ErrExportDisabled
	}
	rows, err := s.GetPortfolioStatusView(ctx)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	body, err := json.Marshal(snapshotDoc{GeneratedAt: now, Rows: rows})
	if err != nil {
		return "", fmt.Errorf("serializar snapshot: %w", err)
	}
	name := path.Join(strings.Trim(s.snapshotPrefix, "/"), "portfolio-status-view-"+now.Format("20060102T150405Z")+".json")
	loc, err := s.sink.PutSnapshot(ctx, name, body)
	if err != nil {
		return "", fmt.Errorf("guardar snapshot: %w", err)
	}
	s.log.Info().Str("location", loc).Int("rows", len(rows)).Msg("snapshot exportado")
	return loc, nil
}

// ─── Reporte ─────────────────────────────────────────────────────────────────

// CountryTotal agregado por país del reporte. Sets suma los setsQty numéricos;
// NonNumeric cuenta los que no se pudieron interpretar.
type CountryTotal struct {
	CountryID   string
	CountryName string
	Products    int
	Sets        decimal.Decimal
	NonNumeric  int
}

// Report datos del reporte de portafolio.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Rows        []entity.PortfolioStatusView
	Countries   []CountryTotal
	TotalSets   decimal.Decimal
}

// BuildReport agrega la vista por país. Los países salen ordenados por nombre.
func BuildReport(rows []entity.PortfolioStatusView, generatedAt time.Time) Report {
	totals := map[string]*CountryTotal{}
	total := decimal.Zero
	for _, r := range rows {
		for _, cs := range r.CountryStatuses {
			ct, ok := totals[cs.CountryID]
			if !ok {
				ct = &CountryTotal{CountryID: cs.CountryID, CountryName: cs.CountryName, Sets: decimal.Zero}
				totals[cs.CountryID] = ct
			}
			ct.Products++
			qty := strings.TrimSpace(cs.SetsQty)
			if qty == "" {
				continue
			}
			d, err := parseQty(qty)
			if err != nil {
				ct.NonNumeric++
				continue
			}
			ct.Sets = ct.Sets.Add(d)
			total = total.Add(d)
		}
	}
	countries := make([]CountryTotal, 0, len(totals))
	for _, ct := range totals {
		countries = append(countries, *ct)
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].CountryName == countries[j].CountryName {
			return countries[i].CountryID < countries[j].CountryID
		}
		return countries[i].CountryName < countries[j].CountryName
	})
	return Report{
		Title:       "Portfolio Status",
		GeneratedAt: generatedAt.UTC(),
		Rows:        rows,
		Countries:   countries,
		TotalSets:   total,
	}
}

// parseQty interpreta una cantidad con punto decimal o con una única coma decimal seguida de uno o
// dos dígitos ("2,5"). "1,000" o "1.000,5" son ambiguos y se rechazan.
func parseQty(qty string) (decimal.Decimal, error) {
	if i := strings.IndexByte(qty, ','); i >= 0 {
		frac := qty[i+1:]
		if strings.ContainsAny(qty[:i], ".,") || strings.ContainsAny(frac, ".,") || len(frac) == 0 || len(frac) > 2 {
			return decimal.Zero, fmt.Errorf("cantidad ambigua %q", qty)
		}
		qty = qty[:i] + "." + frac
	}
	return decimal.NewFromString(qty)
}

// RenderReport genera el documento del reporte con el ReportRenderer configurado.
func (s *Service) RenderReport(ctx context.Context) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("reporte: renderer no configurado")
	}
	rows, err := s.GetPortfolioStatusView(ctx)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(BuildReport(rows, s.now()))
}
