package searchable

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/gorm"
)

// DefaultMaxIDs is the default maximum number of ids placed in one IN condition.
// Oracle has a hard limit of 1000, so this is a safe cross-database default.
const DefaultMaxIDs = 1000

const instrumentationName = "github.com/nlstn/go-searchable"

// Config configures a Searcher. The zero value is usable.
type Config struct {
	// Logger receives structured logs. If nil, slog.Default() is used.
	Logger *slog.Logger

	// TracerProvider provides the OpenTelemetry tracer. If nil, tracing is disabled.
	TracerProvider trace.TracerProvider

	// MeterProvider provides the OpenTelemetry meter. If nil, metrics are disabled.
	MeterProvider metric.MeterProvider

	// MaxIDs limits how many index hits are used per search; further hits are dropped.
	// Default: 1000. If set to 0 or left unset, DefaultMaxIDs is used.
	MaxIDs int

	// PreserveOrder orders loaded records by their rank in the index.
	PreserveOrder bool
}

// Searcher loads the records matching a search term: it asks an Index for ids
// and restricts a GORM query to them.
type Searcher struct {
	index         Index
	logger        *slog.Logger
	tracer        trace.Tracer
	hits          metric.Int64Histogram
	maxIDs        int
	preserveOrder bool
}

// NewSearcher creates a Searcher for index.
func NewSearcher(index Index, cfg Config) (*Searcher, error) {
	if index == nil {
		return nil, &ConfigurationError{Field: "index", Reason: "missing index"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var tp trace.TracerProvider = tracenoop.NewTracerProvider()
	if cfg.TracerProvider != nil {
		tp = cfg.TracerProvider
	}

	var mp metric.MeterProvider = metricnoop.NewMeterProvider()
	if cfg.MeterProvider != nil {
		mp = cfg.MeterProvider
	}

	hits, err := mp.Meter(instrumentationName).Int64Histogram(
		"searchable.hits",
		metric.WithDescription("Number of ids returned by the search index per search"),
		metric.WithUnit("{id}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hits histogram: %w", err)
	}

	maxIDs := cfg.MaxIDs
	if maxIDs <= 0 {
		maxIDs = DefaultMaxIDs
	}

	return &Searcher{
		index:         index,
		logger:        logger,
		tracer:        tp.Tracer(instrumentationName),
		hits:          hits,
		maxIDs:        maxIDs,
		preserveOrder: cfg.PreserveOrder,
	}, nil
}

// Find searches the index for term and loads the matching records into dest
// using tx, which may carry its own Table, Clauses and conditions.
//
// When the index returns no ids no query is run and dest is left unchanged.
func (s *Searcher) Find(ctx context.Context, tx *gorm.DB, term string, dest interface{}) error {
	ctx, span := s.tracer.Start(ctx, "searchable.Find",
		trace.WithAttributes(attribute.String("searchable.term", term)))
	defer span.End()

	ids, err := s.index.Search(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search index failed")
		return fmt.Errorf("search index failed: %w", err)
	}

	s.hits.Record(ctx, int64(len(ids)))
	span.SetAttributes(attribute.Int("searchable.hits", len(ids)))

	if len(ids) > s.maxIDs {
		s.logger.Warn("Search hits truncated", "term", term, "hits", len(ids), "max_ids", s.maxIDs)
		ids = ids[:s.maxIDs]
	}

	if len(ids) == 0 {
		s.logger.Debug("Search returned no hits", "term", term)
		return nil
	}

	scope := Scope(ids)
	if s.preserveOrder {
		scope = OrderedScope(ids)
	}

	if err := tx.WithContext(ctx).Scopes(scope).Find(dest).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading search results failed")
		return fmt.Errorf("failed to load search results: %w", err)
	}

	s.logger.Debug("Search results loaded", "term", term, "hits", len(ids))
	return nil
}
