package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

func (s *Service) ListProductTypes(ctx context.Context) ([]entity.ProductType, error) {
	return list[entity.ProductType](ctx, s, collection.ProductTypes)
}

func (s *Service) CreateProductType(ctx context.Context, in dto.ProductTypeRequest) (entity.ProductType, error) {
	pt := entity.ProductType{ID: s.newID(), Name: strings.TrimSpace(in.Name), IsActive: dto.ActiveOr(in.IsActive, true)}
	err := s.mutate(ctx, "create_product_type", []string{collection.ProductTypes}, func(set *collection.Set) error {
		items := append(collection.Get[entity.ProductType](set, collection.ProductTypes), pt)
		if err := validateProductTypes(items); err != nil {
			return err
		}
		return collection.Put(set, collection.ProductTypes, items)
	})
	return pt, err
}

func (s *Service) UpdateProductType(ctx context.Context, id string, in dto.ProductTypeRequest) (entity.ProductType, error) {
	var out entity.ProductType
	err := s.mutate(ctx, "update_product_type", []string{collection.ProductTypes}, func(set *collection.Set) error {
		items := collection.Get[entity.ProductType](set, collection.ProductTypes)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("tipo de producto", id)
		}
		items[i].Name = strings.TrimSpace(in.Name)
		items[i].IsActive = dto.ActiveOr(in.IsActive, items[i].IsActive)
		if err := validateProductTypes(items); err != nil {
			return err
		}
		out = items[i]
		return collection.Put(set, collection.ProductTypes, items)
	})
	return out, err
}

// DeleteProductType falla con ErrInUse mientras algún producto lo referencie.
func (s *Service) DeleteProductType(ctx context.Context, id string) error {
	keys := []string{collection.ProductTypes, collection.Products}
	return s.mutate(ctx, "delete_product_type", keys, func(set *collection.Set) error {
		items := collection.Get[entity.ProductType](set, collection.ProductTypes)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("tipo de producto", id)
		}
		for _, p := range collection.Get[entity.Product](set, collection.Products) {
			if p.ProductTypeID == id {
				return fmt.Errorf("%w: el producto %q usa el tipo %s", domain.ErrInUse, p.Name, id)
			}
		}
		set.Assert(collection.Products)
		return collection.Put(set, collection.ProductTypes, append(items[:i], items[i+1:]...))
	})
}

func validateProductTypes(items []entity.ProductType) error {
	for _, pt := range items {
		if err := required("name", pt.Name); err != nil {
			return err
		}
	}
	if err := uniqueIDs(items); err != nil {
		return err
	}
	return unique(items, "name", func(pt entity.ProductType) string { return pt.Name }, false)
}
