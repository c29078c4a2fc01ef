package counter

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"kudi/internal/models"
	"kudi/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	// 23:30 UTC is already 00:30 the next day in Lagos (UTC+1)
	at := time.Date(2026, 5, 10, 23, 30, 0, 0, time.UTC)

	utc := DayWindow(at, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), utc.Start)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), utc.End)

	local := DayWindow(at, lagos)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, lagos), local.Start)
	assert.Equal(t, 24*time.Hour, local.End.Sub(local.Start))
}

func TestDayWindowAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	w := DayWindow(time.Date(2026, 3, 8, 12, 0, 0, 0, ny), ny)
	assert.Equal(t, 23*time.Hour, w.End.Sub(w.Start))
}

func TestCountToday(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	ctx := context.Background()

	add := func(ref, user string, service models.Service, status models.TransactionStatus, at time.Time) {
		tx := &models.Transaction{
			Reference: ref,
			UserID:    user,
			Type:      models.TransactionTypePayment,
			Service:   service,
			Amount:    decimal.NewFromInt(100),
			Status:    status,
			CreatedAt: at,
			Metadata:  models.TransactionMetadata{Phone: "0803", Network: "mtn", Plan: "1GB"},
		}
		require.NoError(t, store.Transactions().Create(ctx, tx))
	}

	add("AIR-1", "u1", models.ServiceAirtime, models.StatusCompleted, now.Add(-time.Hour))
	add("AIR-2", "u1", models.ServiceAirtime, models.StatusPending, now.Add(-2*time.Hour))
	add("AIR-3", "u1", models.ServiceAirtime, models.StatusFailed, now.Add(-3*time.Hour))
	add("AIR-4", "u1", models.ServiceAirtime, models.StatusCompleted, now.Add(-16*time.Hour)) // yesterday
	add("DAT-1", "u1", models.ServiceData, models.StatusCompleted, now.Add(-time.Hour))
	add("AIR-5", "u2", models.ServiceAirtime, models.StatusCompleted, now.Add(-time.Hour))

	r := NewReader(nil).WithClock(func() time.Time { return now })

	n, err := r.CountToday(ctx, store, "u1", models.ServiceAirtime)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.CountToday(ctx, store, "u1", models.ServiceData)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.CountToday(ctx, store, "u3", models.ServiceAirtime)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountThroughIgnoresLaterPurchases(t *testing.T) {
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	ctx := context.Background()

	for i, h := range []int{8, 9, 10, 11} {
		tx := &models.Transaction{
			Reference: "AIR-" + string(rune('A'+i)),
			UserID:    "u1",
			Type:      models.TransactionTypePayment,
			Service:   models.ServiceAirtime,
			Amount:    decimal.NewFromInt(100),
			Status:    models.StatusCompleted,
			CreatedAt: day.Add(time.Duration(h) * time.Hour),
			Metadata:  models.TransactionMetadata{Phone: "0803", Network: "mtn"},
		}
		require.NoError(t, store.Transactions().Create(ctx, tx))
	}

	r := NewReader(time.UTC)
	n, err := r.CountThrough(ctx, store, "u1", models.ServiceAirtime, day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n, "the purchase at 10:00 counts itself but not the one at 11:00")
}
