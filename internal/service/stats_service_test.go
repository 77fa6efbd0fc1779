package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mahrfyi/internal/domain"
)

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestAggregateByLocationScenario(t *testing.T) {
	env := newTestEnv(t)
	for _, v := range []int64{1000, 2000, 3000, 4000, 100000} {
		env.seed(t, cash("Pakistan", v))
	}
	env.seed(t, cash("India", 500))

	groups, err := env.statsService().Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	require.Equal(t, []string{"Pakistan", "India"}, keys(groups))

	pk := groups[0]
	assert.Equal(t, 5, pk.Count)
	assert.Equal(t, 3000.0, pk.Summary.Median)
	assert.Equal(t, 22000.0, pk.Summary.Mean)
	assert.Equal(t, 100000.0, pk.Summary.Percentiles.P95)
	assert.Equal(t, domain.AssetCash, pk.TopAssetType)
	assert.Equal(t, 83.3, pk.Share)
	require.NotNil(t, pk.Coordinates)
	assert.Equal(t, 30.3753, pk.Coordinates.Lat)
}

func TestAggregateDiscardsRowsWithoutValue(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Pakistan", 1000))
	env.seed(t, &domain.Submission{AssetType: domain.AssetGold, RawLocation: "Pakistan", Location: "Pakistan"})

	groups, err := env.statsService().Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, 100.0, groups[0].Share)
}

func TestAggregateReresolvesStoredLocations(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Pakistan", 1000))
	// Stored before the tables knew the misspelling.
	stale := cash("pakistn", 2000)
	stale.Location = "Pakistn"
	env.seed(t, stale)

	svc := env.statsService()

	groups, err := svc.Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Pakistan", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)

	byCountry, err := svc.Aggregate(context.Background(), GroupCountry)
	require.NoError(t, err)
	require.Len(t, byCountry, 1)
	assert.Equal(t, "PK", byCountry[0].Key)
}

func TestAggregateKeepsStoredLocationForUnplacedInput(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Springfield", 1000))

	groups, err := env.statsService().Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Springfield", groups[0].Key)
	assert.Nil(t, groups[0].Coordinates)
}

func TestAggregateByRegion(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Pakistan", 1000))
	env.seed(t, cash("India", 2000))
	env.seed(t, cash("Lagos", 3000))

	groups, err := env.statsService().Aggregate(context.Background(), GroupRegion)
	require.NoError(t, err)
	require.Equal(t, []string{"south asia", "other"}, keys(groups))
	assert.Equal(t, 2, groups[0].Count)
}

func TestAggregateByYearSortsAscending(t *testing.T) {
	env := newTestEnv(t)
	for _, y := range []int{2020, 2015, 2020, 2018} {
		sub := cash("Pakistan", 1000)
		sub.MarriageYear = &y
		env.seed(t, sub)
	}
	env.seed(t, cash("Pakistan", 1000))

	groups, err := env.statsService().Aggregate(context.Background(), GroupYear)
	require.NoError(t, err)
	assert.Equal(t, []string{"2015", "2018", "2020"}, keys(groups))
	assert.Equal(t, 2, groups[2].Count)
}

func TestAggregateSuppressesSparseCultureGroups(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		sub := cash("Pakistan", 1000)
		sub.CulturalBackground = "pashtun"
		env.seed(t, sub)
	}
	for i := 0; i < 2; i++ {
		sub := cash("Pakistan", 1000)
		sub.CulturalBackground = "Punjabi"
		env.seed(t, sub)
	}

	groups, err := env.statsService().Aggregate(context.Background(), GroupCulture)
	require.NoError(t, err)
	require.Equal(t, []string{"Pashtun"}, keys(groups))
	assert.Equal(t, 3, groups[0].Count)

	groups, err = env.statsService(WithMinGroupSize(2)).Aggregate(context.Background(), GroupCulture)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pashtun", "Punjabi"}, keys(groups))
}

func TestAggregateMostCommonAssetTieBreak(t *testing.T) {
	env := newTestEnv(t)
	// Newest first: gold is encountered before cash.
	older := cash("India", 1000)
	older.CreatedAt = testNow.Add(-time.Hour)
	env.seed(t, older)
	newer := estimated(domain.AssetGold, "India", 2000)
	newer.CreatedAt = testNow
	env.seed(t, newer)

	groups, err := env.statsService().Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, domain.AssetGold, groups[0].TopAssetType)
}

func TestAggregateOrdersByCountThenKey(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("India", 1))
	env.seed(t, cash("Canada", 1))
	env.seed(t, cash("Pakistan", 1))
	env.seed(t, cash("Pakistan", 1))

	groups, err := env.statsService(WithWorkers(1)).Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pakistan", "Canada", "India"}, keys(groups))
}

func TestAggregateEmpty(t *testing.T) {
	env := newTestEnv(t)

	groups, err := env.statsService().Aggregate(context.Background(), GroupLocation)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestAggregateStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewStatsService(failingRepository{}, env.resolver, env.clock, env.metrics, slog.Default())

	_, err := svc.Aggregate(context.Background(), GroupLocation)
	assert.Error(t, err)

	_, err = svc.Dashboard(context.Background())
	assert.Error(t, err)

	assert.Error(t, svc.CheckReadiness(context.Background()))
}

func TestAggregateCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Pakistan", 1000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.statsService().Aggregate(ctx, GroupLocation)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestDistribution(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, cash("Pakistan", 1000))
	env.seed(t, cash("Pakistan", 2000))
	env.seed(t, cash("India", 3000))

	groups, err := env.statsService().Distribution(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Pakistan"}, keys(groups))
	assert.Equal(t, 1500.0, groups[0].Summary.Median)
}

func TestParseGroupKey(t *testing.T) {
	k, err := ParseGroupKey("")
	require.NoError(t, err)
	assert.Equal(t, GroupLocation, k)

	k, err = ParseGroupKey("Region")
	require.NoError(t, err)
	assert.Equal(t, GroupRegion, k)

	_, err = ParseGroupKey("zodiac")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.submissionService(PolicyStrict)

	inputs := []SubmissionInput{
		{AssetType: "cash", CashAmount: "10000", Location: "Pakistan"},
		{AssetType: "cash", CashAmount: "30000", Location: "India"},
		{AssetType: "cash", CashAmount: "50000", Location: "Dubai"},
		{AssetType: "gold", EstimatedValue: "15000", Location: "USA"},
	}
	for _, in := range inputs {
		_, err := svc.Submit(ctx, in)
		require.NoError(t, err)
	}
	env.seed(t, &domain.Submission{AssetType: domain.AssetProperty, RawLocation: "Lagos", Location: "Nigeria"})

	d, err := env.statsService().Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, d.TotalSubmissions)
	assert.Equal(t, 22500.0, d.GlobalMedian)
	assert.Equal(t, 5, d.UniqueCountries)
	assert.Equal(t, 60, d.CashPercentage)
	assert.True(t, testNow.Equal(d.UpdatedAt))

	require.Len(t, d.RegionalTrends, 3)
	assert.Equal(t, "middle east", d.RegionalTrends[0].Region)
	assert.Equal(t, 50000.0, d.RegionalTrends[0].Median)
	assert.Equal(t, "south asia", d.RegionalTrends[1].Region)
	assert.Equal(t, 20000.0, d.RegionalTrends[1].Median)
	assert.Equal(t, 2, d.RegionalTrends[1].Count)

	require.NotEmpty(t, d.AssetBreakdown)
	assert.Equal(t, domain.AssetCash, d.AssetBreakdown[0].AssetType)
	assert.Equal(t, 3, d.AssetBreakdown[0].Count)
	assert.Equal(t, 60, d.AssetBreakdown[0].Percentage)
}

func TestDashboardReresolvesStoredLocations(t *testing.T) {
	env := newTestEnv(t)
	// Stored before the tables knew the misspelling, so no code or region.
	stale := cash("pakistn", 2000)
	stale.Location = "Pakistn"
	env.seed(t, stale)
	env.seed(t, cash("Germany", 4000))

	d, err := env.statsService().Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.UniqueCountries)
	assert.Equal(t, 3000.0, d.GlobalMedian)

	require.Len(t, d.RegionalTrends, 2)
	assert.Equal(t, "europe", d.RegionalTrends[0].Region)
	assert.Equal(t, "south asia", d.RegionalTrends[1].Region)
	assert.Equal(t, 2000.0, d.RegionalTrends[1].Median)

	byCountry, err := env.statsService().Aggregate(context.Background(), GroupCountry)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"PK", "DE"}, keys(byCountry))
}

func TestDashboardEmpty(t *testing.T) {
	env := newTestEnv(t)

	d, err := env.statsService().Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalSubmissions)
	assert.Zero(t, d.GlobalMedian)
	assert.Zero(t, d.CashPercentage)
	assert.Empty(t, d.RegionalTrends)
	assert.Empty(t, d.AssetBreakdown)
}

func TestCheckReadiness(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.statsService().CheckReadiness(context.Background()))
}
