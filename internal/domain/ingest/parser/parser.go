// Package parser turns raw export text into canonical trades. One
// table-driven engine services every broker, configured by its
// broker.Profile; the Registry maps broker ids to engine instances.
package parser

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
	"github.com/FACorreiaa/broker-import/internal/domain/ticker"
)

// Version tags results produced by the registry engine; the embedded
// fallback carries its own tag so regressions between the two are
// attributable from logs alone.
const Version = "registry/v2"

var (
	// ErrNoParser signals that no parser is registered for a broker id.
	ErrNoParser = errors.New("no parser registered")

	// ErrFatalInput is the only failure that aborts a parse: content with
	// fewer than two lines, or a header that cannot be split.
	ErrFatalInput = errors.New("unusable input")
)

// Trade is the canonical output record. Every trade leaving this package
// satisfies: valid ISO-8601 date, non-empty uppercase ticker, type BUY or
// SELL, qty > 0, price > 0, fees >= 0, 3-letter currency.
type Trade struct {
	Date     string  `json:"date"`
	Ticker   string  `json:"ticker"`
	Type     string  `json:"type"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Fees     float64 `json:"fees"`
	Source   string  `json:"source"`
	RawHash  string  `json:"rawHash,omitempty"`
}

// Trade types (closed enum).
const (
	TypeBuy  = "BUY"
	TypeSell = "SELL"
)

// Meta carries per-invocation diagnostics.
type Meta struct {
	JobID         uuid.UUID `json:"jobId"`
	RowCount      int       `json:"rowCount"`
	InvalidCount  int       `json:"invalidCount"`
	DurationMs    int64     `json:"durationMs"`
	ParserVersion string    `json:"parserVersion"`
}

// Result is the outcome of one parse attempt. Created fresh per invocation,
// never shared across calls.
type Result struct {
	Broker   string   `json:"broker"`
	Trades   []Trade  `json:"trades"`
	Warnings []string `json:"warnings"`
	Meta     Meta     `json:"meta"`
}

// Warn records one row-level warning and bumps the invalid counter.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.Meta.InvalidCount++
}

// Parser is the contract every per-broker implementation satisfies.
type Parser interface {
	Parse(content string) (*Result, error)
	Version() string
}

// Registry maps broker ids to parsers. Built once, read-only afterwards.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry constructs a registry covering every broker profile, sharing
// one ticker resolver across the name-lookup brokers.
func NewRegistry(resolver *ticker.Resolver) *Registry {
	if resolver == nil {
		resolver = ticker.Default()
	}
	r := &Registry{parsers: make(map[string]Parser)}
	for id, profile := range broker.Profiles() {
		r.parsers[id] = newTableParser(profile, resolver)
	}
	return r
}

// Register replaces or adds a parser. Exists for tests; production wiring
// never mutates a registry after NewRegistry.
func (r *Registry) Register(id string, p Parser) {
	r.parsers[id] = p
}

// Deregister removes a parser, used by tests simulating a partially
// initialized registry.
func (r *Registry) Deregister(id string) {
	delete(r.parsers, id)
}

// Parse dispatches to the parser for id. Unknown ids return an error
// matching ErrNoParser via errors.Is.
func (r *Registry) Parse(id, content string) (*Result, error) {
	p, ok := r.parsers[id]
	if !ok {
		return nil, fmt.Errorf("%w for broker %q", ErrNoParser, id)
	}
	return p.Parse(content)
}
