package scheduler

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"
	"github.com/ovheul/heatplan/planner"
)

// openTestDB connects to the database named by TEST_POSTGRES_CONN, or
// skips the test when none is configured.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	connString := os.Getenv("TEST_POSTGRES_CONN")
	if connString == "" {
		t.Skip("Skipping test: TEST_POSTGRES_CONN not set")
	}
	db, err := sql.Open("postgres", connString)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlanPersistenceSaveAndLoad(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("DELETE FROM plan_steps")
	require.NoError(t, err)

	config := DefaultConfig()
	config.HorizonSteps = 3
	s := NewHeatScheduler(config, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	s.db = db

	now := time.Now()
	out := &planner.Output{
		Status:         planner.StatusOK,
		Offsets:        []int{1, 0, -1},
		Buffer:         []float64{3, 3, 0},
		SupplyTemp:     []float64{39, 38, 37},
		CostPerStep:    []float64{0.44, 0.29, 0.39},
		SavingsPerStep: []float64{-0.15, 0, 0.39},
		TotalCost:      1.12,
	}

	require.NoError(t, s.savePlan(context.Background(), now, out))

	loaded, at, err := s.loadLatestPlan(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, planner.StatusOK, loaded.Status)
	assert.Equal(t, out.Offsets, loaded.Offsets)
	assert.InDeltaSlice(t, out.Buffer, loaded.Buffer, 1e-9)
	assert.InDelta(t, 1.12, loaded.TotalCost, 1e-9)
	assert.WithinDuration(t, now, at, time.Second)
}

func TestPlanPersistenceOverwrite(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("DELETE FROM plan_steps")
	require.NoError(t, err)

	config := DefaultConfig()
	config.HorizonSteps = 2
	s := NewHeatScheduler(config, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	s.db = db

	now := time.Now()
	first := &planner.Output{
		Status:         planner.StatusOK,
		Offsets:        []int{2, 2},
		Buffer:         []float64{1, 2},
		SupplyTemp:     []float64{40, 40},
		CostPerStep:    []float64{0.5, 0.5},
		SavingsPerStep: []float64{0, 0},
	}
	require.NoError(t, s.savePlan(context.Background(), now, first))

	second := &planner.Output{
		Status:         planner.StatusOK,
		Offsets:        []int{-1, -1},
		Buffer:         []float64{-1, -2},
		SupplyTemp:     []float64{37, 37},
		CostPerStep:    []float64{0.2, 0.2},
		SavingsPerStep: []float64{0.3, 0.3},
	}
	require.NoError(t, s.savePlan(context.Background(), now, second))

	loaded, _, err := s.loadLatestPlan(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, second.Offsets, loaded.Offsets)
}

func TestManualOverridePersistence(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("DELETE FROM manual_override")
	require.NoError(t, err)

	config := DefaultConfig()
	s := NewHeatScheduler(config, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	s.db = db

	ctx := context.Background()

	// Nothing stored yet.
	override, err := s.loadManualOverride(ctx)
	require.NoError(t, err)
	assert.Nil(t, override)

	offset := -2
	require.NoError(t, s.saveManualOverride(ctx, &offset))

	override, err = s.loadManualOverride(ctx)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.Equal(t, -2, *override)

	// Clearing removes the row.
	require.NoError(t, s.saveManualOverride(ctx, nil))
	override, err = s.loadManualOverride(ctx)
	require.NoError(t, err)
	assert.Nil(t, override)
}
