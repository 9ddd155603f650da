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

var productRefKeys = []string{collection.Products, collection.Procedures, collection.ProductTypes}

func (s *Service) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return list[entity.Product](ctx, s, collection.Products)
}

func (s *Service) CreateProduct(ctx context.Context, in dto.ProductRequest) (entity.Product, error) {
	p := productFrom(s.newID(), in, true)
	err := s.mutate(ctx, "create_product", productRefKeys, func(set *collection.Set) error {
		items := append(collection.Get[entity.Product](set, collection.Products), p)
		if err := validateProductsIn(set, items); err != nil {
			return err
		}
		set.Assert(collection.Procedures, collection.ProductTypes)
		return collection.Put(set, collection.Products, items)
	})
	return p, err
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in dto.ProductRequest) (entity.Product, error) {
	var out entity.Product
	err := s.mutate(ctx, "update_product", productRefKeys, func(set *collection.Set) error {
		items := collection.Get[entity.Product](set, collection.Products)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("producto", id)
		}
		items[i] = productFrom(id, in, items[i].IsActive)
		if err := validateProductsIn(set, items); err != nil {
			return err
		}
		set.Assert(collection.Procedures, collection.ProductTypes)
		out = items[i]
		return collection.Put(set, collection.Products, items)
	})
	return out, err
}

// DeleteProduct elimina el producto y sus asignaciones de estado en el mismo commit.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	keys := []string{collection.Products, collection.StatusPortfolios}
	return s.mutate(ctx, "delete_product", keys, func(set *collection.Set) error {
		items := collection.Get[entity.Product](set, collection.Products)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("producto", id)
		}
		rows := collection.Get[entity.StatusPortfolio](set, collection.StatusPortfolios)
		kept := rows[:0]
		for _, sp := range rows {
			if sp.ProductID != id {
				kept = append(kept, sp)
			}
		}
		if len(kept) != len(rows) {
			if err := collection.Put(set, collection.StatusPortfolios, kept); err != nil {
				return err
			}
		}
		return collection.Put(set, collection.Products, append(items[:i], items[i+1:]...))
	})
}

// SaveProducts reemplaza la colección completa y reconstruye la vista.
func (s *Service) SaveProducts(ctx context.Context, items []entity.Product) (portfolio.RebuildResult, error) {
	return s.saveAndRebuild(ctx, "save_products", productRefKeys, func(set *collection.Set) error {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = s.newID()
			}
			items[i].Name = strings.TrimSpace(items[i].Name)
		}
		if err := validateProductsIn(set, items); err != nil {
			return err
		}
		set.Assert(collection.Procedures, collection.ProductTypes)
		return collection.Put(set, collection.Products, items)
	})
}

func productFrom(id string, in dto.ProductRequest, activeDefault bool) entity.Product {
	return entity.Product{
		ID:               id,
		Name:             strings.TrimSpace(in.Name),
		ProcedureID:      in.ProcedureID,
		ProductTypeID:    in.ProductTypeID,
		ProductTier:      in.ProductTier,
		ProductLifeCycle: in.ProductLifeCycle,
		IsActive:         dto.ActiveOr(in.IsActive, activeDefault),
	}
}

// validateProductsIn valida contra los procedimientos y tipos guardados en el set.
func validateProductsIn(set *collection.Set, items []entity.Product) error {
	return validateProducts(items,
		collection.Get[entity.Procedure](set, collection.Procedures),
		collection.Get[entity.ProductType](set, collection.ProductTypes))
}

// validateProducts exige campos, enumeraciones, nombres únicos y referencias existentes.
func validateProducts(items []entity.Product, procs []entity.Procedure, pts []entity.ProductType) error {
	procedures := collection.IndexByID(procs)
	types := collection.IndexByID(pts)
	for _, p := range items {
		if err := required("name", p.Name); err != nil {
			return err
		}
		if !entity.ValidTier(p.ProductTier) {
			return fmt.Errorf("%w: productTier %q inválido", domain.ErrInvalidInput, p.ProductTier)
		}
		if !entity.ValidLifeCycle(p.ProductLifeCycle) {
			return fmt.Errorf("%w: productLifeCycle %q inválido", domain.ErrInvalidInput, p.ProductLifeCycle)
		}
		if _, ok := procedures[p.ProcedureID]; !ok {
			return fmt.Errorf("%w: procedimiento %q no existe", domain.ErrInvalidInput, p.ProcedureID)
		}
		if _, ok := types[p.ProductTypeID]; !ok {
			return fmt.Errorf("%w: tipo de producto %q no existe", domain.ErrInvalidInput, p.ProductTypeID)
		}
	}
	if err := uniqueIDs(items); err != nil {
		return err
	}
	return unique(items, "name", func(p entity.Product) string { return p.Name }, false)
}
