package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// batch contenido de un directorio de importación.
type batch struct {
	catalogue   catalog.Catalogue
	assignments []portfolio.StatusUpdate
}

// record fila CSV indexada por nombre de columna (sin distinguir mayúsculas).
type record struct {
	file   string
	line   int
	fields map[string]string
}

func (r record) str(col string) string { return strings.TrimSpace(r.fields[strings.ToLower(col)]) }

// boolOr interpreta true/false, 1/0, yes/no y si/no. Vacío devuelve def.
func (r record) boolOr(col string, def bool) (bool, error) {
	v := strings.ToLower(r.str(col))
	switch v {
	case "":
		return def, nil
	case "true", "1", "yes", "y", "si", "sí", "x":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("%s:%d: %s=%q no es booleano", r.file, r.line, col, v)
}

func (r record) intOr(col string, def int) (int, error) {
	v := r.str(col)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: %s=%q no es entero", r.file, r.line, col, v)
	}
	return n, nil
}

// decoderFor devuelve el decodificador de texto de la codificación indicada.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		// Descarta el BOM que Excel antepone a los CSV UTF-8.
		return unicode.UTF8BOM.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	return nil, fmt.Errorf("codificación %q no soportada", name)
}

// readCSV lee name de fsys. Un archivo ausente devuelve nil sin error.
func readCSV(fsys fs.FS, name, enc string) ([]record, error) {
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := decoderFor(enc)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(transform.NewReader(f, dec))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: cabecera: %w", name, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		if blank(row) {
			continue
		}
		rec := record{file: name, line: line, fields: make(map[string]string, len(header))}
		for i, col := range header {
			if i < len(row) {
				rec.fields[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readBatch lee todos los CSV reconocidos del directorio.
func readBatch(fsys fs.FS, enc string) (batch, error) {
	var b batch
	steps := []struct {
		file  string
		parse func(record) error
	}{
		{"countries.csv", func(r record) error {
			hasTiers, err := r.boolOr("hasTiers", false)
			if err != nil {
				return err
			}
			tiers, err := r.intOr("numberOfTiers", 0)
			if err != nil {
				return err
			}
			active, err := r.boolOr("isActive", true)
			if err != nil {
				return err
			}
			b.catalogue.Countries = append(b.catalogue.Countries, entity.Country{
				ID: r.str("id"), Name: r.str("name"), Code: r.str("code"),
				HasTiers: hasTiers, NumberOfTiers: tiers, IsActive: active,
			})
			return nil
		}},
		{"procedures.csv", func(r record) error {
			active, err := r.boolOr("isActive", true)
			if err != nil {
				return err
			}
			b.catalogue.Procedures = append(b.catalogue.Procedures, entity.Procedure{
				ID: r.str("id"), Name: r.str("name"), Category: r.str("category"), IsActive: active,
			})
			return nil
		}},
		{"product_types.csv", func(r record) error {
			active, err := r.boolOr("isActive", true)
			if err != nil {
				return err
			}
			b.catalogue.ProductTypes = append(b.catalogue.ProductTypes, entity.ProductType{
				ID: r.str("id"), Name: r.str("name"), IsActive: active,
			})
			return nil
		}},
		{"products.csv", func(r record) error {
			active, err := r.boolOr("isActive", true)
			if err != nil {
				return err
			}
			b.catalogue.Products = append(b.catalogue.Products, entity.Product{
				ID: r.str("id"), Name: r.str("name"),
				ProcedureID: r.str("procedureId"), ProductTypeID: r.str("productTypeId"),
				ProductTier: r.str("productTier"), ProductLifeCycle: r.str("productLifeCycle"),
				IsActive: active,
			})
			return nil
		}},
		{"statuses.csv", func(r record) error {
			active, err := r.boolOr("isActive", true)
			if err != nil {
				return err
			}
			b.catalogue.Statuses = append(b.catalogue.Statuses, entity.Status{
				ID: r.str("id"), Code: r.str("code"), Name: r.str("name"),
				Color: r.str("color"), Description: r.str("description"), IsActive: active,
			})
			return nil
		}},
		{"status_portfolios.csv", func(r record) error {
			b.assignments = append(b.assignments, portfolio.StatusUpdate{
				ProductID: r.str("productId"), CountryID: r.str("countryId"), StatusID: r.str("statusId"),
				SetsQty: r.str("setsQty"), Notes: r.str("notes"),
			})
			return nil
		}},
	}
	for _, st := range steps {
		recs, err := readCSV(fsys, st.file, enc)
		if err != nil {
			return batch{}, err
		}
		for _, r := range recs {
			if err := st.parse(r); err != nil {
				return batch{}, err
			}
		}
	}
	return b, nil
}
