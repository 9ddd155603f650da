package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// NATSBus publica invalidaciones en un subject core de NATS para que todas las instancias
// descarten su caché.
type NATSBus struct {
	nc      *nats.Conn
	subject string
	log     *logger.Logger
}

var _ portfolio.InvalidationBus = (*NATSBus)(nil)

// NewNATSBus conecta con url. name identifica la conexión en el servidor.
func NewNATSBus(url, subject, name string, log *logger.Logger) (*NATSBus, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("nats_bus")
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("desconectado de NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("reconectado a NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("conectar a NATS: %w", err)
	}
	return NewNATSBusWithConn(nc, subject, log), nil
}

// NewNATSBusWithConn usa una conexión existente.
func NewNATSBusWithConn(nc *nats.Conn, subject string, log *logger.Logger) *NATSBus {
	if log == nil {
		log = logger.Nop()
	}
	return &NATSBus{nc: nc, subject: subject, log: log}
}

func (b *NATSBus) Publish(ctx context.Context, ev portfolio.Invalidation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("contexto cancelado antes de publicar: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar invalidación: %w", err)
	}
	return b.nc.Publish(b.subject, data)
}

func (b *NATSBus) Subscribe(handler func(portfolio.Invalidation)) (func(), error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var ev portfolio.Invalidation
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			// Un mensaje ilegible también invalida: es preferible recargar a servir datos viejos.
			b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("invalidación ilegible")
			ev = portfolio.Invalidation{Reason: "unknown"}
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("suscribir %s: %w", b.subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			b.log.Warn().Err(err).Msg("no se pudo cancelar la suscripción")
		}
	}, nil
}

// Close vacía los mensajes pendientes y cierra la conexión.
func (b *NATSBus) Close() error {
	if b.nc.IsClosed() {
		return nil
	}
	return b.nc.Drain()
}
