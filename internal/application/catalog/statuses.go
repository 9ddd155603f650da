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

func (s *Service) ListStatuses(ctx context.Context) ([]entity.Status, error) {
	return list[entity.Status](ctx, s, collection.Statuses)
}

func (s *Service) CreateStatus(ctx context.Context, in dto.StatusRequest) (entity.Status, error) {
	st := statusFrom(s.newID(), in, true)
	err := s.mutate(ctx, "create_status", []string{collection.Statuses}, func(set *collection.Set) error {
		items := append(collection.Get[entity.Status](set, collection.Statuses), st)
		if err := validateStatuses(items); err != nil {
			return err
		}
		return collection.Put(set, collection.Statuses, items)
	})
	return st, err
}

func (s *Service) UpdateStatus(ctx context.Context, id string, in dto.StatusRequest) (entity.Status, error) {
	var out entity.Status
	err := s.mutate(ctx, "update_status", []string{collection.Statuses}, func(set *collection.Set) error {
		items := collection.Get[entity.Status](set, collection.Statuses)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("estado", id)
		}
		items[i] = statusFrom(id, in, items[i].IsActive)
		if err := validateStatuses(items); err != nil {
			return err
		}
		out = items[i]
		return collection.Put(set, collection.Statuses, items)
	})
	return out, err
}

// DeleteStatus no permite borrar el centinela None ni estados asignados.
func (s *Service) DeleteStatus(ctx context.Context, id string) error {
	if id == entity.NoneStatusID {
		return fmt.Errorf("%w: el estado %s no se puede eliminar", domain.ErrInvalidInput, id)
	}
	keys := []string{collection.Statuses, collection.StatusPortfolios}
	return s.mutate(ctx, "delete_status", keys, func(set *collection.Set) error {
		items := collection.Get[entity.Status](set, collection.Statuses)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("estado", id)
		}
		if err := statusUnused(collection.Get[entity.StatusPortfolio](set, collection.StatusPortfolios), id); err != nil {
			return err
		}
		set.Assert(collection.StatusPortfolios)
		return collection.Put(set, collection.Statuses, append(items[:i], items[i+1:]...))
	})
}

// SaveStatuses reemplaza la colección completa y reconstruye la vista.
// El centinela None debe seguir presente y no se pueden quitar estados asignados.
func (s *Service) SaveStatuses(ctx context.Context, items []entity.Status) (portfolio.RebuildResult, error) {
	keys := []string{collection.Statuses, collection.StatusPortfolios}
	return s.saveAndRebuild(ctx, "save_statuses", keys, func(set *collection.Set) error {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = s.newID()
			}
			items[i].Name = strings.TrimSpace(items[i].Name)
			items[i].Code = strings.TrimSpace(items[i].Code)
		}
		if err := validateStatuses(items); err != nil {
			return err
		}
		kept := collection.IndexByID(items)
		if _, ok := kept[entity.NoneStatusID]; !ok {
			return fmt.Errorf("%w: falta el estado %s", domain.ErrInvalidInput, entity.NoneStatusID)
		}
		rows := collection.Get[entity.StatusPortfolio](set, collection.StatusPortfolios)
		for _, old := range collection.Get[entity.Status](set, collection.Statuses) {
			if _, ok := kept[old.ID]; ok {
				continue
			}
			if err := statusUnused(rows, old.ID); err != nil {
				return err
			}
		}
		set.Assert(collection.StatusPortfolios)
		return collection.Put(set, collection.Statuses, items)
	})
}

func statusUnused(rows []entity.StatusPortfolio, id string) error {
	for _, sp := range rows {
		if sp.StatusID == id {
			return fmt.Errorf("%w: el estado %s está asignado (producto %s, país %s)", domain.ErrInUse, id, sp.ProductID, sp.CountryID)
		}
	}
	return nil
}

func statusFrom(id string, in dto.StatusRequest, activeDefault bool) entity.Status {
	return entity.Status{
		ID:          id,
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Color:       strings.ToUpper(strings.TrimSpace(in.Color)),
		Description: strings.TrimSpace(in.Description),
		IsActive:    dto.ActiveOr(in.IsActive, activeDefault),
	}
}

func validateStatuses(items []entity.Status) error {
	for _, st := range items {
		if err := required("name", st.Name); err != nil {
			return err
		}
		if !colorRe.MatchString(st.Color) {
			return fmt.Errorf("%w: color %q debe tener la forma #RRGGBB", domain.ErrInvalidInput, st.Color)
		}
	}
	if err := uniqueIDs(items); err != nil {
		return err
	}
	if err := unique(items, "name", func(st entity.Status) string { return st.Name }, false); err != nil {
		return err
	}
	return unique(items, "code", func(st entity.Status) string { return st.Code }, true)
}
