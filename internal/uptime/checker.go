package uptime

import (
	"context"
	"log"
	"sync"
	"time"

	"fdiadmin/internal/models"
)

const defaultProbeTimeout = 5 * time.Second

type Prober interface {
	Health(ctx context.Context) (*models.Health, error)
}

type Gauge interface {
	SetBackendUp(up bool)
}

// Status is the outcome of the most recent probe.
type Status struct {
	Checked   bool
	Up        bool
	Detail    string
	CheckedAt time.Time
}

// Checker probes the bot API health endpoint and remembers the last answer.
type Checker struct {
	probe   Prober
	gauge   Gauge
	timeout time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last Status
}

func NewChecker(probe Prober, gauge Gauge) *Checker {
	return &Checker{probe: probe, gauge: gauge, timeout: defaultProbeTimeout, now: time.Now}
}

func (c *Checker) Last() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Check runs one probe. Only transitions between up and down are logged.
func (c *Checker) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	status := Status{Checked: true, CheckedAt: c.now()}
	health, err := c.probe.Health(ctx)
	switch {
	case err != nil:
		status.Detail = err.Error()
	case health.Status != "ok":
		status.Detail = "status " + health.Status
	default:
		status.Up = true
		status.Detail = health.Status
	}

	c.mu.Lock()
	prev := c.last
	c.last = status
	c.mu.Unlock()

	if c.gauge != nil {
		c.gauge.SetBackendUp(status.Up)
	}
	if !prev.Checked || prev.Up != status.Up {
		if status.Up {
			log.Printf("Bot API is up")
		} else {
			log.Printf("Bot API is down: %s", status.Detail)
		}
	}
}
