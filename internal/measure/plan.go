package measure

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
)

// Suite names.
const (
	SuiteCreateDelete = "create-delete"
	SuiteUpdateGet    = "update-get"
)

// Plan describes one measurement sweep. Values come from a TOML file and
// can be overridden with MEASURE_* environment variables.
type Plan struct {
	Host      string        `toml:"host" env:"MEASURE_HOST"`
	Runs      int           `toml:"runs" env:"MEASURE_RUNS"`
	Spans     []int         `toml:"spans" env:"MEASURE_SPANS" envSeparator:","`
	Suites    []string      `toml:"suites" env:"MEASURE_SUITES" envSeparator:","`
	OutputDir string        `toml:"output_dir" env:"MEASURE_OUTPUT_DIR"`
	Timeout   time.Duration `toml:"timeout" env:"MEASURE_TIMEOUT"`
	Token     string        `toml:"token" env:"MEASURE_TOKEN"`
	// Rate caps requests per second; 0 means unpaced.
	Rate float64 `toml:"rate" env:"MEASURE_RATE"`
	// Settle is the pause before each severity update so the fixture write is visible.
	Settle      time.Duration `toml:"settle" env:"MEASURE_SETTLE"`
	ClearMethod string        `toml:"clear_method" env:"MEASURE_CLEAR_METHOD"`

	Window Window `toml:"window"`
}

// Window holds the time bounds the suites write into and read from.
type Window struct {
	GenerateStart time.Time `toml:"generate_start" env:"MEASURE_GENERATE_START"`
	GenerateEnd   time.Time `toml:"generate_end" env:"MEASURE_GENERATE_END"`
	QueryStart    time.Time `toml:"query_start" env:"MEASURE_QUERY_START"`
	QueryEnd      time.Time `toml:"query_end" env:"MEASURE_QUERY_END"`
}

// DefaultPlan is the stock sweep: 3 runs over spans 1, 10 and 50.
func DefaultPlan() *Plan {
	return &Plan{
		Host:        "http://localhost:8000",
		Runs:        3,
		Spans:       []int{1, 10, 50},
		Suites:      []string{SuiteCreateDelete, SuiteUpdateGet},
		OutputDir:   ".",
		Timeout:     30 * time.Second,
		Settle:      500 * time.Millisecond,
		ClearMethod: http.MethodDelete,
		Window: Window{
			GenerateStart: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			GenerateEnd:   time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
			QueryStart:    time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
			QueryEnd:      time.Date(2025, 1, 18, 10, 0, 0, 0, time.UTC),
		},
	}
}

// LoadPlan reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func LoadPlan(path string) (*Plan, error) {
	p := DefaultPlan()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading plan: %w", err)
		}
		if err := toml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parsing plan %s: %w", path, err)
		}
	}
	if err := env.Parse(p); err != nil {
		return nil, fmt.Errorf("plan env: %w", err)
	}
	p.Host = strings.TrimRight(p.Host, "/")
	p.ClearMethod = strings.ToUpper(p.ClearMethod)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects plans the runner cannot execute.
func (p *Plan) Validate() error {
	if p.Host == "" {
		return errors.New("host is required")
	}
	if p.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", p.Runs)
	}
	if len(p.Spans) == 0 {
		return errors.New("at least one span is required")
	}
	for _, s := range p.Spans {
		if s <= 0 {
			return fmt.Errorf("spans must be positive, got %d", s)
		}
	}
	for _, s := range p.Suites {
		if s != SuiteCreateDelete && s != SuiteUpdateGet {
			return fmt.Errorf("unknown suite %q", s)
		}
	}
	if p.ClearMethod != http.MethodDelete && p.ClearMethod != http.MethodPost {
		return fmt.Errorf("clear_method must be DELETE or POST, got %q", p.ClearMethod)
	}
	if p.Rate < 0 {
		return errors.New("rate must not be negative")
	}
	if !p.Window.GenerateEnd.After(p.Window.GenerateStart) {
		return errors.New("window.generate_end must be after window.generate_start")
	}
	w := p.Window
	if w.QueryEnd.Before(w.QueryStart) {
		return errors.New("window.query_end must not be before window.query_start")
	}
	// Queries and clears must see every generated event and the fixture.
	if w.GenerateStart.Before(w.QueryStart) || w.GenerateEnd.After(w.QueryEnd) {
		return fmt.Errorf("generate window [%s, %s] must lie inside the query window [%s, %s]",
			w.GenerateStart.Format(time.RFC3339), w.GenerateEnd.Format(time.RFC3339),
			w.QueryStart.Format(time.RFC3339), w.QueryEnd.Format(time.RFC3339))
	}
	if fixtureTime.Before(w.QueryStart) || fixtureTime.After(w.QueryEnd) {
		return fmt.Errorf("query window [%s, %s] must contain the fixture event at %s",
			w.QueryStart.Format(time.RFC3339), w.QueryEnd.Format(time.RFC3339), fixtureTime.Format(time.RFC3339))
	}
	return nil
}

// Enabled reports whether suite is enabled. No suites listed means all.
func (p *Plan) Enabled(suite string) bool {
	if len(p.Suites) == 0 {
		return true
	}
	for _, s := range p.Suites {
		if s == suite {
			return true
		}
	}
	return false
}
