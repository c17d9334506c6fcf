package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PhoneLimiter limita mensajes por teléfono para frenar ráfagas: cada número
// tiene su propio token bucket. Los buckets inactivos se purgan periódicamente.
type PhoneLimiter struct {
	mu       sync.Mutex
	limiters map[string]*phoneEntry
	rps      rate.Limit
	burst    int
}

type phoneEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewPhoneLimiter(porMinuto, burst int) *PhoneLimiter {
	pl := &PhoneLimiter{
		limiters: make(map[string]*phoneEntry),
		rps:      rate.Limit(float64(porMinuto) / 60.0),
		burst:    burst,
	}
	go pl.cleanup()
	return pl
}

// Allow retorna false si el teléfono superó su cuota
func (p *PhoneLimiter) Allow(telefono string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.limiters[telefono]
	if !ok {
		entry = &phoneEntry{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.limiters[telefono] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (p *PhoneLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for tel, entry := range p.limiters {
			if time.Since(entry.lastSeen) > 30*time.Minute {
				delete(p.limiters, tel)
			}
		}
		p.mu.Unlock()
	}
}
