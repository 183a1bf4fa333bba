package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Flights(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("set REDIS_ADDR to run redis cache tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	require.NoError(t, c.InvalidateFlights(ctx))

	flights, err := c.GetFlights(ctx)
	require.NoError(t, err)
	assert.Nil(t, flights)

	want := []domain.Flight{{ID: 1, FlightNo: "UK955", TotalSeats: 180, SeatsAvailable: 12, BaseFare: decimal.NewFromInt(6500)}}
	require.NoError(t, c.SetFlights(ctx, want))

	flights, err = c.GetFlights(ctx)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "UK955", flights[0].FlightNo)
	assert.True(t, flights[0].BaseFare.Equal(want[0].BaseFare))

	require.NoError(t, c.InvalidateFlights(ctx))
	flights, err = c.GetFlights(ctx)
	require.NoError(t, err)
	assert.Nil(t, flights)
}
