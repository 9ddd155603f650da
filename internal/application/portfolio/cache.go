package portfolio

import (
	"sync"
	"time"

	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// viewCache copia local de la vista con TTL. generation avanza en cada invalidación para que una
// carga iniciada antes no repueble la caché con datos ya invalidados.
type viewCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	rows     []entity.PortfolioStatusView
	loadedAt time.Time
	valid    bool
	gen      uint64
}

func newViewCache(ttl time.Duration) *viewCache {
	return &viewCache{ttl: ttl, now: time.Now}
}

func (c *viewCache) get() ([]entity.PortfolioStatusView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.ttl <= 0 || c.now().Sub(c.loadedAt) > c.ttl {
		return nil, false
	}
	return cloneRows(c.rows), true
}

func (c *viewCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *viewCache) put(gen uint64, rows []entity.PortfolioStatusView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.rows = cloneRows(rows)
	c.loadedAt = c.now()
	c.valid = true
}

func (c *viewCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.valid = false
	c.rows = nil
}
