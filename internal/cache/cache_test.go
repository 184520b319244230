package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripsim/internal/cache"
	"github.com/neexbeast/tripsim/internal/catalog"
	"github.com/neexbeast/tripsim/internal/simulation"
)

func newTestCache(t *testing.T, ttl time.Duration) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewCache(client, ttl), mr
}

func sampleRecord() *simulation.Record {
	dep := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	req := simulation.Request{
		Origin:        "São Paulo",
		Destination:   "Salvador",
		DepartureDate: dep,
		ReturnDate:    dep.AddDate(0, 0, 4),
		Budget:        decimal.NewFromInt(3000),
		Interests:     []string{"beach"},
	}
	res := &simulation.Result{
		FlightOptions: []catalog.FlightOption{},
		HotelOptions: []catalog.LodgingOption{
			catalog.NewLodgingOption("h1", "Pousada Salvador", 4.2, decimal.NewFromInt(100), 4, "BRL", nil),
		},
		TotalEstimate: decimal.RequireFromString("400.00"),
		Currency:      "BRL",
		Nights:        4,
		WithinBudget:  true,
	}
	return simulation.NewRecord(req, res, dep)
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, c.Set(ctx, rec))

	got, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Salvador", got.Request.Destination)
	require.Len(t, got.Result.HotelOptions, 1)
	assert.True(t, got.Result.TotalEstimate.Equal(decimal.NewFromInt(400)))
	assert.True(t, got.Result.WithinBudget)
}

func TestCache_Get_Miss(t *testing.T) {
	c, _ := newTestCache(t, 0)

	got, err := c.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss should return nil, nil")
}

func TestCache_IDKeyIsNormalized(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, c.Set(ctx, rec))

	got, err := c.Get(ctx, "  "+rec.ID+" ")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, c.Set(ctx, rec))
	require.NoError(t, c.Delete(ctx, rec.ID))

	got, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be gone after delete")
}

func TestCache_Delete_NonExistent(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, c.Delete(context.Background(), "ghost"))
}

func TestCache_Set_Nil(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, c.Set(context.Background(), nil))
}

func TestCache_Get_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set("simulation:bad", "{not json"))

	_, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
}

func TestCache_TTL(t *testing.T) {
	c, mr := newTestCache(t, 10*time.Minute)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, c.Set(ctx, rec))

	mr.FastForward(5 * time.Minute)
	got, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	mr.FastForward(6 * time.Minute)
	got, err = c.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be expired after TTL")
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
