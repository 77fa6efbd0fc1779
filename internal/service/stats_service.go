package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/observability"
	"github.com/vbonduro/mahrfyi/internal/stats"
	"github.com/vbonduro/mahrfyi/internal/store"
)

// GroupKey selects how Aggregate buckets submissions.
type GroupKey string

const (
	GroupLocation   GroupKey = "location"
	GroupCountry    GroupKey = "country"
	GroupRegion     GroupKey = "region"
	GroupYear       GroupKey = "year"
	GroupCulture    GroupKey = "culture"
	GroupProfession GroupKey = "profession"
)

var GroupKeys = []GroupKey{GroupLocation, GroupCountry, GroupRegion, GroupYear, GroupCulture, GroupProfession}

// OtherRegion is the bucket for submissions without a region.
const OtherRegion = "other"

const (
	DefaultMinGroupSize = 3
	DefaultWorkers      = 8

	distributionMinCount = 2
	distributionTop      = 10
	dashboardRegions     = 4
)

// ParseGroupKey defaults an empty key to location.
func ParseGroupKey(s string) (GroupKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GroupLocation, nil
	}
	for _, k := range GroupKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", domain.NewValidationError("by", "unknown grouping %q", s)
}

// sparse groups of these keys could identify individual submitters.
func (k GroupKey) suppressesSparse() bool {
	return k == GroupCulture || k == GroupProfession
}

// Group is one bucket of valued submissions.
type Group struct {
	Key          string              `json:"key"`
	Count        int                 `json:"count"`
	Summary      stats.Summary       `json:"summary"`
	TopAssetType domain.AssetType    `json:"top_asset_type"`
	Share        float64             `json:"share"`
	Coordinates  *domain.Coordinates `json:"coordinates,omitempty"`
}

type StatsService struct {
	submissions  submissionRepository
	resolver     locationResolver
	clock        clockwork.Clock
	minGroupSize int
	workers      int
	metrics      *observability.Metrics
	logger       *slog.Logger
}

type StatsOption func(*StatsService)

func WithMinGroupSize(n int) StatsOption {
	return func(s *StatsService) { s.minGroupSize = n }
}

func WithWorkers(n int) StatsOption {
	return func(s *StatsService) { s.workers = n }
}

func NewStatsService(
	submissions submissionRepository,
	resolver locationResolver,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *slog.Logger,
	opts ...StatsOption,
) *StatsService {
	s := &StatsService{
		submissions:  submissions,
		resolver:     resolver,
		clock:        clock,
		minGroupSize: DefaultMinGroupSize,
		workers:      DefaultWorkers,
		metrics:      metrics,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// valued is a submission with its statistics value and freshly resolved
// location fields.
type valued struct {
	sub         *domain.Submission
	value       float64
	hasValue    bool
	location    string
	countryCode string
	region      string
}

// Aggregate reads every submission and returns grouped statistics. Rows
// without a positive value are ignored.
func (s *StatsService) Aggregate(ctx context.Context, key GroupKey) ([]Group, error) {
	start := s.clock.Now()
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]valued)
	var order []string
	total := 0
	for _, row := range rows {
		k, ok := s.groupKey(key, row)
		if !ok {
			continue
		}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], row)
		total++
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		members := buckets[k]
		if key.suppressesSparse() && len(members) < s.minGroupSize {
			continue
		}
		groups = append(groups, s.buildGroup(key, k, members, total))
	}
	sortGroups(key, groups)

	s.metrics.AggregationDuration.WithLabelValues(string(key)).Observe(s.clock.Since(start).Seconds())
	s.logger.Debug("aggregation complete", "key", key, "rows", len(rows), "groups", len(groups))
	return groups, nil
}

// Distribution returns the busiest locations: at most ten, each with at
// least two submissions.
func (s *StatsService) Distribution(ctx context.Context) ([]Group, error) {
	groups, err := s.Aggregate(ctx, GroupLocation)
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, distributionTop)
	for _, g := range groups {
		if g.Count < distributionMinCount {
			continue
		}
		out = append(out, g)
		if len(out) == distributionTop {
			break
		}
	}
	return out, nil
}

func (s *StatsService) buildGroup(key GroupKey, k string, members []valued, total int) Group {
	values := make([]float64, len(members))
	assetTypes := make([]domain.AssetType, len(members))
	for i, m := range members {
		values[i] = m.value
		assetTypes[i] = m.sub.AssetType
	}
	top, _ := stats.MostCommon(assetTypes)

	g := Group{
		Key:          k,
		Count:        len(members),
		Summary:      stats.Summarize(values),
		TopAssetType: top,
	}
	if total > 0 {
		g.Share = math.Round(float64(len(members))/float64(total)*1000) / 10
	}
	if key == GroupLocation {
		if place, ok := s.resolver.Tables().Place(k); ok {
			g.Coordinates = place.Coordinates
		}
	}
	return g
}

func (s *StatsService) groupKey(key GroupKey, row valued) (string, bool) {
	switch key {
	case GroupLocation:
		return row.location, row.location != ""
	case GroupCountry:
		return row.countryCode, row.countryCode != ""
	case GroupRegion:
		if row.region == "" {
			return OtherRegion, true
		}
		return row.region, true
	case GroupYear:
		if row.sub.MarriageYear == nil {
			return "", false
		}
		return strconv.Itoa(*row.sub.MarriageYear), true
	case GroupCulture:
		return tag(row.sub.CulturalBackground)
	case GroupProfession:
		return tag(row.sub.Profession)
	}
	return "", false
}

func tag(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return location.TitleCase(s), true
}

func sortGroups(key GroupKey, groups []Group) {
	if key == GroupYear {
		sort.SliceStable(groups, func(i, j int) bool {
			a, _ := strconv.Atoi(groups[i].Key)
			b, _ := strconv.Atoi(groups[j].Key)
			return a < b
		})
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
}

// load returns the valued submissions with their locations re-resolved.
func (s *StatsService) load(ctx context.Context) ([]valued, error) {
	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if row.hasValue {
			out = append(out, row)
		}
	}
	return out, nil
}

// loadAll fetches every submission and re-resolves its location against the
// current tables. Stored fields are kept when the input no longer resolves.
func (s *StatsService) loadAll(ctx context.Context) ([]valued, error) {
	subs, err := s.submissions.List(ctx, store.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	s.metrics.AggregationRows.Observe(float64(len(subs)))

	rows := make([]valued, len(subs))
	for i, sub := range subs {
		rows[i].sub = sub
		if v, ok := sub.Value(); ok {
			rows[i].value, _ = v.Float64()
			rows[i].hasValue = true
		}
	}

	resolved, err := s.resolveLocations(ctx, rows)
	if err != nil {
		return nil, err
	}
	tables := s.resolver.Tables()
	for i := range rows {
		sub := rows[i].sub
		rows[i].location = sub.Location
		rows[i].countryCode = sub.CountryCode
		rows[i].region = sub.Region

		res, ok := resolved[rawLocation(sub)]
		if !ok || !res.Resolved() {
			continue
		}
		rows[i].location = res.Canonical
		code, region := tables.Classify(res.Canonical, sub.RawLocation)
		if code != "" {
			rows[i].countryCode = code
		}
		if region != "" {
			rows[i].region = region
		}
	}
	return rows, nil
}

// resolveLocations resolves each distinct raw location once, fanning out
// across at most s.workers goroutines.
func (s *StatsService) resolveLocations(ctx context.Context, rows []valued) (map[string]location.Result, error) {
	var distinct []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		raw := rawLocation(row.sub)
		if _, ok := seen[raw]; ok || raw == "" {
			continue
		}
		seen[raw] = struct{}{}
		distinct = append(distinct, raw)
	}

	results := make([]location.Result, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, raw := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.resolver.Resolve(gctx, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve locations: %w", err)
	}

	out := make(map[string]location.Result, len(distinct))
	for i, raw := range distinct {
		out[raw] = results[i]
	}
	return out, nil
}

func rawLocation(sub *domain.Submission) string {
	if raw := strings.TrimSpace(sub.RawLocation); raw != "" {
		return raw
	}
	return sub.Location
}

// RegionTrend is one row of the dashboard's regional comparison.
type RegionTrend struct {
	Region string  `json:"region"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

type AssetShare struct {
	AssetType  domain.AssetType `json:"asset_type"`
	Count      int              `json:"count"`
	Percentage int              `json:"percentage"`
}

// Dashboard is the headline summary shown on the home page.
type Dashboard struct {
	TotalSubmissions int           `json:"total_submissions"`
	GlobalMedian     float64       `json:"global_median"`
	UniqueCountries  int           `json:"unique_countries"`
	CashPercentage   int           `json:"cash_percentage"`
	RegionalTrends   []RegionTrend `json:"regional_trends"`
	AssetBreakdown   []AssetShare  `json:"asset_breakdown"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Dashboard re-resolves stored locations the same way Aggregate does, so
// countries and regions agree with the grouped views.
func (s *StatsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	total, err := s.submissions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalSubmissions: total,
		RegionalTrends:   []RegionTrend{},
		AssetBreakdown:   []AssetShare{},
		UpdatedAt:        s.clock.Now().UTC(),
	}

	var (
		values     []float64
		assetTypes []domain.AssetType
		cash       int
	)
	countries := make(map[string]struct{})
	regions := make(map[string][]float64)
	var regionOrder []string
	for _, row := range rows {
		assetTypes = append(assetTypes, row.sub.AssetType)
		if row.sub.AssetType.IsCash() {
			cash++
		}
		if row.countryCode != "" {
			countries[row.countryCode] = struct{}{}
		}
		if !row.hasValue {
			continue
		}
		values = append(values, row.value)
		if row.region != "" {
			if _, seen := regions[row.region]; !seen {
				regionOrder = append(regionOrder, row.region)
			}
			regions[row.region] = append(regions[row.region], row.value)
		}
	}

	d.GlobalMedian = stats.Summarize(values).Median
	d.UniqueCountries = len(countries)
	d.CashPercentage = percent(cash, total)

	for _, region := range regionOrder {
		sum := stats.Summarize(regions[region])
		d.RegionalTrends = append(d.RegionalTrends, RegionTrend{Region: region, Median: math.Round(sum.Median), Count: sum.Count})
	}
	sort.SliceStable(d.RegionalTrends, func(i, j int) bool {
		return d.RegionalTrends[i].Median > d.RegionalTrends[j].Median
	})
	if len(d.RegionalTrends) > dashboardRegions {
		d.RegionalTrends = d.RegionalTrends[:dashboardRegions]
	}

	for _, c := range stats.Tally(assetTypes) {
		d.AssetBreakdown = append(d.AssetBreakdown, AssetShare{AssetType: c.Value, Count: c.N, Percentage: percent(c.N, total)})
	}
	return d, nil
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

// CheckReadiness reports whether the submission store is reachable.
func (s *StatsService) CheckReadiness(ctx context.Context) error {
	return s.submissions.Ping(ctx)
}
