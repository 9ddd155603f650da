package catalog

import (
	"context"
	"strings"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// Catalogue lote de importación. Cada elemento se inserta o, si su id ya existe, se reemplaza.
// Nada se elimina.
type Catalogue struct {
	Countries    []entity.Country
	Procedures   []entity.Procedure
	ProductTypes []entity.ProductType
	Products     []entity.Product
	Statuses     []entity.Status
}

// Empty informa si el lote no trae registros.
func (c Catalogue) Empty() bool {
	return len(c.Countries)+len(c.Procedures)+len(c.ProductTypes)+len(c.Products)+len(c.Statuses) == 0
}

// ImportCatalogue fusiona el lote con el catálogo actual en un único commit y reconstruye la vista.
// Las reglas de validación son las mismas del CRUD; los productos se validan contra los
// procedimientos y tipos ya fusionados.
func (s *Service) ImportCatalogue(ctx context.Context, in Catalogue) (portfolio.RebuildResult, error) {
	keys := []string{collection.Countries, collection.Procedures, collection.ProductTypes, collection.Products, collection.Statuses}
	assignIDs(in.Countries, s.newID, func(c *entity.Country, id string) { c.ID = id })
	assignIDs(in.Procedures, s.newID, func(p *entity.Procedure, id string) { p.ID = id })
	assignIDs(in.ProductTypes, s.newID, func(pt *entity.ProductType, id string) { pt.ID = id })
	assignIDs(in.Products, s.newID, func(p *entity.Product, id string) { p.ID = id })
	assignIDs(in.Statuses, s.newID, func(st *entity.Status, id string) { st.ID = id })

	return s.saveAndRebuild(ctx, "import_catalogue", keys, func(set *collection.Set) error {
		countries := merge(collection.Get[entity.Country](set, collection.Countries), in.Countries, func(c *entity.Country) {
			c.Name = strings.TrimSpace(c.Name)
			c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
			if !c.HasTiers {
				c.NumberOfTiers = 0
			}
		})
		if err := validateCountries(countries); err != nil {
			return err
		}

		procedures := merge(collection.Get[entity.Procedure](set, collection.Procedures), in.Procedures, func(p *entity.Procedure) {
			p.Name = strings.TrimSpace(p.Name)
			p.Category = strings.TrimSpace(p.Category)
		})
		if err := validateProcedures(procedures); err != nil {
			return err
		}

		types := merge(collection.Get[entity.ProductType](set, collection.ProductTypes), in.ProductTypes, func(pt *entity.ProductType) {
			pt.Name = strings.TrimSpace(pt.Name)
		})
		if err := validateProductTypes(types); err != nil {
			return err
		}

		statuses := merge(collection.Get[entity.Status](set, collection.Statuses), in.Statuses, func(st *entity.Status) {
			st.Name = strings.TrimSpace(st.Name)
			st.Code = strings.TrimSpace(st.Code)
			st.Color = strings.ToUpper(strings.TrimSpace(st.Color))
		})
		if _, ok := collection.FindByID(statuses, entity.NoneStatusID); !ok {
			statuses = append(statuses, entity.NoneStatus())
		}
		if err := validateStatuses(statuses); err != nil {
			return err
		}

		// Get lee lo guardado, no lo escrito en este lote: se valida contra las listas fusionadas.
		products := merge(collection.Get[entity.Product](set, collection.Products), in.Products, func(p *entity.Product) {
			p.Name = strings.TrimSpace(p.Name)
		})
		if err := validateProducts(products, procedures, types); err != nil {
			return err
		}

		if err := collection.Put(set, collection.Procedures, procedures); err != nil {
			return err
		}
		if err := collection.Put(set, collection.ProductTypes, types); err != nil {
			return err
		}
		if err := collection.Put(set, collection.Countries, countries); err != nil {
			return err
		}
		if err := collection.Put(set, collection.Statuses, statuses); err != nil {
			return err
		}
		return collection.Put(set, collection.Products, products)
	})
}

// merge aplica normalize a cada entrante y lo inserta o reemplaza por id en current.
func merge[T collection.Identifiable](current, incoming []T, normalize func(*T)) []T {
	out := append([]T(nil), current...)
	pos := make(map[string]int, len(out))
	for i, it := range out {
		pos[it.GetID()] = i
	}
	for _, it := range incoming {
		normalize(&it)
		if i, ok := pos[it.GetID()]; ok {
			out[i] = it
			continue
		}
		pos[it.GetID()] = len(out)
		out = append(out, it)
	}
	return out
}

func assignIDs[T collection.Identifiable](items []T, newID func() string, set func(*T, string)) {
	for i := range items {
		if items[i].GetID() == "" {
			set(&items[i], newID())
		}
	}
}
