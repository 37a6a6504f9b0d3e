// Package synth builds random events from the reference tables in models.
package synth

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"influx_events/internal/models"
)

const (
	placeholder = "%d"
	paramMin    = 1
	paramMax    = 100
)

// Generator produces synthetic events. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a generator seeded with seed.
func New(seed uint64) *Generator {
	return NewFromRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewFromRand wraps an existing source.
func NewFromRand(r *rand.Rand) *Generator {
	return &Generator{rnd: r}
}

// Event returns a random event stamped at at.
func (g *Generator) Event(at time.Time) models.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.event(at)
}

func (g *Generator) event(at time.Time) models.Event {
	sev := models.Severities[g.rnd.IntN(len(models.Severities))]
	typ := models.EventTypes[g.rnd.IntN(len(models.EventTypes))]
	src := models.Sources[g.rnd.IntN(len(models.Sources))]

	return models.Event{
		Timestamp: at,
		Message:   g.message(typ.Name),
		Severity:  sev,
		EventType: typ,
		Source:    src,
	}
}

// message picks a template for the event type and fills its placeholders.
func (g *Generator) message(eventType string) string {
	templates := models.MessageTemplates[eventType]
	if len(templates) == 0 {
		return eventType
	}
	tpl := templates[g.rnd.IntN(len(templates))]
	n := strings.Count(tpl, placeholder)
	if n == 0 {
		return tpl
	}
	args := make([]any, n)
	for i := range args {
		args[i] = paramMin + g.rnd.IntN(paramMax-paramMin+1)
	}
	return fmt.Sprintf(tpl, args...)
}

// Between returns a uniformly random instant in [start, end] shifted by a
// uniform offset in [-jitter, +jitter].
func (g *Generator) Between(start, end time.Time, jitter time.Duration) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.between(start, end, jitter)
}

func (g *Generator) between(start, end time.Time, jitter time.Duration) time.Time {
	span := end.Sub(start)
	at := start
	if span > 0 {
		at = start.Add(time.Duration(g.rnd.Int64N(int64(span) + 1)))
	}
	if jitter > 0 {
		at = at.Add(time.Duration(g.rnd.Int64N(2*int64(jitter)+1)) - jitter)
	}
	return at.UTC()
}

// Batch returns n events with timestamps drawn by Between.
func (g *Generator) Batch(n int, start, end time.Time, jitter time.Duration) []models.Event {
	if n <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.event(g.between(start, end, jitter)))
	}
	return out
}
