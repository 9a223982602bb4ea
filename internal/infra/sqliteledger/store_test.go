package sqliteledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/plancodec"
)

func TestLedgerRoundTripsRunWithPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := OpenWithOptions(path, OpenOptions{Fast: true})
	require.NoError(t, err)
	defer store.Close()

	svc := history.NewService(store, plancodec.Encoder{}, plancodec.Decoder{})
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	plan := domain.Plan{Operations: []domain.PlanOperation{
		domain.CreateCollectionOp("REVIEWS"),
		domain.CreateIndexOp("REVIEWS", domain.IndexSpec{Field: "film_id", Direction: domain.Descending}),
	}}

	first := history.RunRecord{
		RunID:         "01J00000000000000000000001",
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
		Database:      "UGC_DB",
		SchemaVersion: "v1",
		Fingerprint:   "abc",
		Revision:      "deadbeef+dirty",
		State:         domain.RunCompleted,
		DryRun:        true,
		Counts:        history.Counts{Planned: 2},
		Plan:          plan,
	}
	second := history.RunRecord{
		RunID:          "01J00000000000000000000002",
		StartedAt:      started.Add(time.Minute),
		FinishedAt:     started.Add(time.Minute),
		Database:       "UGC_DB",
		State:          domain.RunAborted,
		Counts:         history.Counts{Failed: 1, NotRun: 1, Retries: 2},
		FailureOp:      "create_index",
		FailureTarget:  "REVIEWS",
		FailureMessage: "not authorized",
		Plan:           plan,
	}
	require.NoError(t, svc.Record(context.Background(), first))
	require.NoError(t, svc.Record(context.Background(), second))

	runs, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0])
	assert.Equal(t, first, runs[1])

	limited, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.RunID, limited[0].RunID)
}

func TestLedgerRejectsDuplicateRunID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run := history.StoredRun{RunRecord: history.RunRecord{RunID: "dup", State: domain.RunCompleted}}
	require.NoError(t, store.Append(context.Background(), run))
	assert.Error(t, store.Append(context.Background(), run))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
