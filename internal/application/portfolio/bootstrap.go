package portfolio

import (
	"context"
	"fmt"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// EnsureReadyToOrderStatus agrega el estado "Ready to be Ordered" si ningún estado lo representa
// por nombre o por código. Es idempotente; se ejecuta una vez al arrancar.
func (s *Service) EnsureReadyToOrderStatus(ctx context.Context) (bool, error) {
	return s.ensureStatus(ctx, "ensure_ready_to_order", entity.Status.IsReadyToOrder, func() entity.Status {
		return entity.Status{
			ID:       fmt.Sprintf("%s%d", entity.ReadyToOrderIDPfx, s.now().UnixMilli()),
			Code:     entity.ReadyToOrderCode,
			Name:     entity.ReadyToOrderName,
			Color:    entity.ReadyToOrderColor,
			IsActive: true,
		}
	})
}

// EnsureNoneStatus agrega el centinela "None" (status-5) si falta.
func (s *Service) EnsureNoneStatus(ctx context.Context) (bool, error) {
	return s.ensureStatus(ctx, "ensure_none_status",
		func(st entity.Status) bool { return st.ID == entity.NoneStatusID },
		entity.NoneStatus)
}

// Migrate ejecuta las migraciones de arranque.
func (s *Service) Migrate(ctx context.Context) error {
	if _, err := s.EnsureNoneStatus(ctx); err != nil {
		return err
	}
	if _, err := s.EnsureReadyToOrderStatus(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Service) ensureStatus(ctx context.Context, op string, present func(entity.Status) bool, build func() entity.Status) (bool, error) {
	var created entity.Status
	_, versions, err := s.runner.Mutate(ctx, op, []string{collection.Statuses}, func(set *collection.Set) error {
		statuses := collection.Get[entity.Status](set, collection.Statuses)
		for _, st := range statuses {
			if present(st) {
				return nil
			}
		}
		created = build()
		return collection.Put(set, collection.Statuses, append(statuses, created))
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if len(versions) == 0 {
		return false, nil
	}
	s.log.Info().Str("status_id", created.ID).Str("status_name", created.Name).Msg("estado de arranque creado")
	s.Invalidate(ctx, op, collection.Statuses)
	return true, nil
}
