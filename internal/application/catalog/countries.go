package catalog

import (
	"context"
	"strings"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

func (s *Service) ListCountries(ctx context.Context) ([]entity.Country, error) {
	return list[entity.Country](ctx, s, collection.Countries)
}

// CreateCountry crea un país. El código se guarda en mayúsculas.
func (s *Service) CreateCountry(ctx context.Context, in dto.CountryRequest) (entity.Country, error) {
	c := countryFrom(s.newID(), in, true)
	err := s.mutate(ctx, "create_country", []string{collection.Countries}, func(set *collection.Set) error {
		items := append(collection.Get[entity.Country](set, collection.Countries), c)
		if err := validateCountries(items); err != nil {
			return err
		}
		return collection.Put(set, collection.Countries, items)
	})
	return c, err
}

// UpdateCountry reemplaza los campos editables del país id.
func (s *Service) UpdateCountry(ctx context.Context, id string, in dto.CountryRequest) (entity.Country, error) {
	var out entity.Country
	err := s.mutate(ctx, "update_country", []string{collection.Countries}, func(set *collection.Set) error {
		items := collection.Get[entity.Country](set, collection.Countries)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("país", id)
		}
		items[i] = countryFrom(id, in, items[i].IsActive)
		if err := validateCountries(items); err != nil {
			return err
		}
		out = items[i]
		return collection.Put(set, collection.Countries, items)
	})
	return out, err
}

// DeleteCountry elimina el país. Las asignaciones que lo referencian quedan fuera de la vista.
func (s *Service) DeleteCountry(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_country", []string{collection.Countries}, func(set *collection.Set) error {
		items := collection.Get[entity.Country](set, collection.Countries)
		i := indexOf(items, id)
		if i < 0 {
			return notFound("país", id)
		}
		return collection.Put(set, collection.Countries, append(items[:i], items[i+1:]...))
	})
}

func countryFrom(id string, in dto.CountryRequest, activeDefault bool) entity.Country {
	c := entity.Country{
		ID:            id,
		Name:          strings.TrimSpace(in.Name),
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		HasTiers:      in.HasTiers,
		NumberOfTiers: in.NumberOfTiers,
		IsActive:      dto.ActiveOr(in.IsActive, activeDefault),
	}
	if !c.HasTiers {
		c.NumberOfTiers = 0
	}
	return c
}

func validateCountries(items []entity.Country) error {
	for _, c := range items {
		if err := required("name", c.Name); err != nil {
			return err
		}
		if err := required("code", c.Code); err != nil {
			return err
		}
	}
	if err := uniqueIDs(items); err != nil {
		return err
	}
	if err := unique(items, "name", func(c entity.Country) string { return c.Name }, false); err != nil {
		return err
	}
	return unique(items, "code", func(c entity.Country) string { return c.Code }, false)
}
