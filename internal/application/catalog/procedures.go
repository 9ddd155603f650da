package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

func (s *Service) ListProcedures(ctx context.Context) ([]entity.Procedure, error) {
	return list[entity.Procedure](ctx, s, collection.Procedures)
}

func (s *Service) CreateProcedure(ctx context.Context, in dto.ProcedureRequest) (entity.Procedure, error) {
	p := procedureFrom(s.newID(), in, true)
	err := s.mutate(ctx, "create_procedure", []string{collection.Procedures}, func(set *collection.Set) error {
		items := append(collection.Get[entity.Procedure](set, collection.Procedures), p)
		if err := validateProcedures(items); err != nil {
			return err
		}
		return collection.Put(set, collection.Procedures, items)
	})
	return p, err
}

func (s *Service) UpdateProcedure(ctx context.Context, id string, in dto.ProcedureRequest) (entity.Procedure, error) {
	var out entity.Procedure
	err := s.mutate(ctx, "update_procedure", []string{collection.Procedures}, func(set *collection.Set) error {
		items := collection.Get[entity.Procedure](set, collection.Procedures)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("procedimiento", id)
		}
		items[i] = procedureFrom(id, in, items[i].IsActive)
		if err := validateProcedures(items); err != nil {
			return err
		}
		out = items[i]
		return collection.Put(set, collection.Procedures, items)
	})
	return out, err
}

// DeleteProcedure falla con ErrInUse mientras algún producto lo referencie.
func (s *Service) DeleteProcedure(ctx context.Context, id string) error {
	keys := []string{collection.Procedures, collection.Products}
	return s.mutate(ctx, "delete_procedure", keys, func(set *collection.Set) error {
		items := collection.Get[entity.Procedure](set, collection.Procedures)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("procedimiento", id)
		}
		if err := procedureUnused(collection.Get[entity.Product](set, collection.Products), id); err != nil {
			return err
		}
		// Products se afirma para que un producto nuevo que lo referencie aborte el borrado.
		set.Assert(collection.Products)
		return collection.Put(set, collection.Procedures, append(items[:i], items[i+1:]...))
	})
}

// SaveProcedures reemplaza la colección completa y reconstruye la vista.
func (s *Service) SaveProcedures(ctx context.Context, items []entity.Procedure) (portfolio.RebuildResult, error) {
	keys := []string{collection.Procedures, collection.Products}
	return s.saveAndRebuild(ctx, "save_procedures", keys, func(set *collection.Set) error {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = s.newID()
			}
			items[i].Name = strings.TrimSpace(items[i].Name)
			items[i].Category = strings.TrimSpace(items[i].Category)
		}
		if err := validateProcedures(items); err != nil {
			return err
		}
		kept := collection.IndexByID(items)
		for _, old := range collection.Get[entity.Procedure](set, collection.Procedures) {
			if _, ok := kept[old.ID]; ok {
				continue
			}
			if err := procedureUnused(collection.Get[entity.Product](set, collection.Products), old.ID); err != nil {
				return err
			}
		}
		set.Assert(collection.Products)
		return collection.Put(set, collection.Procedures, items)
	})
}

func procedureUnused(products []entity.Product, id string) error {
	for _, p := range products {
		if p.ProcedureID == id {
			return fmt.Errorf("%w: el producto %q usa el procedimiento %s", domain.ErrInUse, p.Name, id)
		}
	}
	return nil
}

func procedureFrom(id string, in dto.ProcedureRequest, activeDefault bool) entity.Procedure {
	return entity.Procedure{
		ID:       id,
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		IsActive: dto.ActiveOr(in.IsActive, activeDefault),
	}
}

func validateProcedures(items []entity.Procedure) error {
	for _, p := range items {
		if err := required("name", p.Name); err != nil {
			return err
		}
		if err := required("category", p.Category); err != nil {
			return err
		}
	}
	if err := uniqueIDs(items); err != nil {
		return err
	}
	return unique(items, "name", func(p entity.Procedure) string { return p.Name }, false)
}
