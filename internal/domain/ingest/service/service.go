// Package service orchestrates one import: sniff, parse through the
// registry, escalate to the embedded fallback when the registry is
// unavailable or clearly wrong, then normalize. One Service instance is safe
// for any number of concurrent imports; all shared state is read-only.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/fallback"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/broker-import/internal/domain/ticker"
	"github.com/FACorreiaa/broker-import/internal/observability"
)

// RawInput is the caller-supplied file descriptor. The core never mutates
// it and never performs I/O to obtain it.
type RawInput struct {
	Name      string
	MediaType string
	Size      int64
	Content   []byte
}

// ErrInputTooLarge is returned before any parsing when the configured byte
// ceiling is exceeded.
var ErrInputTooLarge = errors.New("input exceeds configured size ceiling")

// escalation states; the controller walks NotAttempted → PrimaryAttempted →
// {Resolved | PrimaryFailed | LowConfidence} → FallbackAttempted → Resolved.
type escalationState int

const (
	stateNotAttempted escalationState = iota
	statePrimaryAttempted
	stateResolved
	statePrimaryFailed
	stateLowConfidence
	stateFallbackAttempted
)

// degiro is the one profile whose ticker mapping can fail systematically:
// few trades alongside a flood of warnings signals a name-mapping problem,
// not a thin file.
const (
	lowConfidenceMaxTrades  = 3
	lowConfidenceWarnFactor = 3
	lowConfidenceBroker     = broker.Degiro
	unknownBrokerWarning    = "file format not recognized; ask the user to pick the source manually"
	noParserWarningFormat   = "no parser available for %q and no fallback exists"
)

func (s escalationState) String() string {
	switch s {
	case statePrimaryAttempted:
		return "primary_attempted"
	case stateResolved:
		return "resolved"
	case statePrimaryFailed:
		return "primary_failed"
	case stateLowConfidence:
		return "low_confidence"
	case stateFallbackAttempted:
		return "fallback_attempted"
	default:
		return "not_attempted"
	}
}

// Service wires the sniffer, registry, fallback twins and normalizer.
type Service struct {
	registry  *parser.Registry
	fallbacks map[string]parser.Parser
	logger    *slog.Logger
	maxBytes  int64
}

// Option configures a Service.
type Option func(*Service)

// WithMaxBytes sets a hard input ceiling; zero disables the check.
func WithMaxBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithRegistry injects a prebuilt registry (tests use this to simulate a
// partially initialized one).
func WithRegistry(r *parser.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// New builds a Service sharing one ticker resolver between the registry and
// the fallback twins so both resolve names identically.
func New(logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	resolver := ticker.Default()
	s := &Service{
		registry:  parser.NewRegistry(resolver),
		fallbacks: fallback.Twins(resolver),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import runs one full pass: ceiling check, workbook flattening, sniffing,
// escalated parsing, normalization. The only error returns are the fatal
// input conditions and the size ceiling; everything else is reported through
// the Result's warnings.
func (s *Service) Import(ctx context.Context, in RawInput) (*parser.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, in.Size)
	}

	start := time.Now()
	jobID := uuid.New()
	log := s.logger.With(slog.String("job_id", jobID.String()), slog.String("file", in.Name))

	content := string(in.Content)
	if parser.IsWorkbook(in.Name, in.MediaType) {
		flat, err := parser.FlattenWorkbook(in.Content)
		if err != nil {
			res := emptyResult(broker.Unknown, jobID)
			res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
			observability.ImportsTotal.WithLabelValues(broker.Unknown, "fatal").Inc()
			return res, fmt.Errorf("%w: %v", parser.ErrFatalInput, err)
		}
		content = flat
	}

	sample := content
	if len(sample) > sniffer.SampleSize {
		sample = sample[:sniffer.SampleSize]
	}
	id := sniffer.Detect(sample)
	if id == broker.Unknown {
		log.Info("format not recognized")
		observability.ImportsTotal.WithLabelValues(broker.Unknown, "unknown").Inc()
		res := emptyResult(broker.Unknown, jobID)
		res.Warnings = append(res.Warnings, unknownBrokerWarning)
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, nil
	}
	log = log.With(slog.String("broker", id))

	res, err := s.escalatedParse(log, id, content)
	if err != nil {
		// Fatal input is the one condition that propagates.
		res.Meta.JobID = jobID
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		observability.ImportsTotal.WithLabelValues(id, "fatal").Inc()
		return res, err
	}

	trades, dropped := normalizer.Normalize(res.Trades)
	res.Trades = trades
	res.Meta.InvalidCount += dropped
	if dropped > 0 {
		observability.InvalidRowsTotal.Add(float64(dropped))
	}

	res.Meta.JobID = jobID
	res.Meta.DurationMs = time.Since(start).Milliseconds()

	outcome := "ok"
	if len(res.Trades) == 0 {
		outcome = "empty"
	}
	observability.ImportsTotal.WithLabelValues(id, outcome).Inc()
	log.Info("import finished",
		slog.Int("trades", len(res.Trades)),
		slog.Int("warnings", len(res.Warnings)),
		slog.Int("dropped", dropped),
		slog.String("parser_version", res.Meta.ParserVersion),
	)
	return res, nil
}

// escalatedParse is the fallback controller. At most one fallback attempt;
// a primary result that is merely incomplete-but-valid is never swapped for
// a worse fallback result.
func (s *Service) escalatedParse(log *slog.Logger, id, content string) (*parser.Result, error) {
	state := stateNotAttempted

	primary, err := s.registry.Parse(id, content)
	state = statePrimaryAttempted

	var reason string
	switch {
	case errors.Is(err, parser.ErrFatalInput):
		return primary, err
	case errors.Is(err, parser.ErrNoParser):
		state = statePrimaryFailed
		reason = "no_parser"
	case err == nil && len(primary.Trades) == 0:
		state = stateLowConfidence
		reason = "empty_result"
	case err == nil && id == lowConfidenceBroker &&
		len(primary.Trades) <= lowConfidenceMaxTrades &&
		len(primary.Warnings) > lowConfidenceWarnFactor*len(primary.Trades):
		state = stateLowConfidence
		reason = "low_confidence"
	default:
		state = stateResolved
		return primary, nil
	}

	twin, ok := s.fallbacks[id]
	if !ok {
		// Nothing to escalate to: surface what we have.
		if state == statePrimaryFailed {
			res := emptyResult(id, uuid.Nil)
			res.Warnings = append(res.Warnings, fmt.Sprintf(noParserWarningFormat, id))
			return res, nil
		}
		return primary, nil
	}

	log.Warn("escalating to embedded parser", slog.String("reason", reason))
	observability.FallbacksTotal.WithLabelValues(id, reason).Inc()
	state = stateFallbackAttempted

	secondary, err := twin.Parse(content)
	if errors.Is(err, parser.ErrFatalInput) {
		return secondary, err
	}

	// Keep whichever result actually produced non-trivial output. The
	// primary wins ties so an equally-empty fallback never masks the
	// primary's warnings.
	if secondary != nil && len(secondary.Trades) > 0 &&
		(primary == nil || len(secondary.Trades) > len(primary.Trades)) {
		log.Info("fallback result kept", slog.String("state", state.String()),
			slog.Int("trades", len(secondary.Trades)))
		return secondary, nil
	}
	if primary != nil {
		return primary, nil
	}
	return secondary, nil
}

func emptyResult(id string, jobID uuid.UUID) *parser.Result {
	return &parser.Result{
		Broker:   id,
		Trades:   []parser.Trade{},
		Warnings: []string{},
		Meta:     parser.Meta{JobID: jobID, ParserVersion: parser.Version},
	}
}
