// Package events implementa el bus de invalidación de la vista: en proceso o sobre NATS.
package events

import (
	"context"
	"sync"

	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
)

// LocalBus entrega los eventos de forma síncrona a los suscriptores del mismo proceso.
type LocalBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(portfolio.Invalidation)
}

var _ portfolio.InvalidationBus = (*LocalBus)(nil)

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: map[int]func(portfolio.Invalidation){}}
}

func (b *LocalBus) Publish(ctx context.Context, ev portfolio.Invalidation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	handlers := make([]func(portfolio.Invalidation), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(handler func(portfolio.Invalidation)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.handlers = map[int]func(portfolio.Invalidation){}
	b.mu.Unlock()
	return nil
}
