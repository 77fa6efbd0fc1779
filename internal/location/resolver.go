package location

import (
	"context"
	"log/slog"

	"github.com/vbonduro/mahrfyi/internal/geocode"
	"github.com/vbonduro/mahrfyi/internal/observability"
)

// Resolver normalizes locations. When the normalizer falls back, it looks for
// a country named as whole words in the input and then asks an optional
// geocoder. Geocoder failures degrade to the fallback result.
type Resolver struct {
	normalizer *Normalizer
	geocoder   geocode.Geocoder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewResolver accepts a nil geocoder and nil metrics.
func NewResolver(n *Normalizer, g geocode.Geocoder, m *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{normalizer: n, geocoder: g, metrics: m, logger: logger}
}

func (r *Resolver) Tables() *Tables {
	return r.normalizer.tables
}

func (r *Resolver) Resolve(ctx context.Context, raw string) Result {
	res := r.normalizer.Normalize(raw)
	if res.Method == MethodFallback {
		if i, ok := r.Tables().placeByKeyword(raw); ok {
			res = r.normalizer.result(i, MethodKeyword, 1)
		}
	}
	if res.Method == MethodFallback && r.geocoder != nil && Clean(raw) != "" {
		res = r.geocode(ctx, raw, res)
	}
	if r.metrics != nil {
		r.metrics.LocationResolutions.WithLabelValues(string(res.Method)).Inc()
	}
	return res
}

func (r *Resolver) geocode(ctx context.Context, raw string, fallback Result) Result {
	g, err := r.geocoder.Geocode(ctx, raw)
	if err != nil {
		r.logger.Warn("geocoding failed, keeping fallback location",
			"location", raw,
			"error", err,
		)
		r.count("error")
		return fallback
	}
	if g.Country == "" {
		r.count("empty")
		return fallback
	}

	again := r.normalizer.Normalize(g.Country)
	if !again.Resolved() {
		r.logger.Debug("geocoder answer not in location tables",
			"location", raw,
			"answer", g.Country,
		)
		r.count("unplaced")
		return fallback
	}

	r.count("success")
	again.Method = MethodGeocoder
	return again
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil {
		r.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	}
}
