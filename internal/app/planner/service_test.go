package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/platform"
)

type fakeReader struct {
	mu          sync.Mutex
	collections []string
	indexes     map[string][]domain.IndexSpec
	shardKeys   map[string]domain.ShardKey
	failures    map[string]error
	inspected   []string
}

func (f *fakeReader) ListCollections(ctx context.Context) ([]string, error) {
	return f.collections, f.takeFailure("list")
}

func (f *fakeReader) ListIndexes(ctx context.Context, collection string) ([]domain.IndexSpec, error) {
	f.mu.Lock()
	f.inspected = append(f.inspected, collection)
	f.mu.Unlock()
	if err := f.takeFailure("indexes:" + collection); err != nil {
		return nil, err
	}
	return f.indexes[collection], nil
}

func (f *fakeReader) GetShardKey(ctx context.Context, collection string) (domain.ShardKey, bool, error) {
	key, ok := f.shardKeys[collection]
	return key, ok, nil
}

// takeFailure returns a configured failure once.
func (f *fakeReader) takeFailure(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.failures[name]
	delete(f.failures, name)
	return err
}

func testOptions() Options {
	return Options{Retry: platform.RetryPolicy{MaxAttempts: 3}, Logger: platform.DiscardLogger()}
}

func TestNewServiceRequiresReader(t *testing.T) {
	_, err := NewService(nil, testOptions())
	assert.ErrorIs(t, err, ErrStateReaderRequired)
}

func TestSnapshotInspectsOnlyDeclaredCollections(t *testing.T) {
	reader := &fakeReader{
		collections: []string{"REVIEWS", "unrelated"},
		indexes:     map[string][]domain.IndexSpec{"REVIEWS": desc("film_id")},
		shardKeys:   map[string]domain.ShardKey{"REVIEWS": *hashed("film_id")},
	}
	svc, err := NewService(reader, testOptions())
	require.NoError(t, err)

	model, err := domain.NewSchemaModel(domain.SchemaMeta{Database: "UGC_DB"}, []domain.CollectionSpec{
		{Name: "REVIEWS", ShardKey: hashed("film_id"), Indexes: desc("film_id", "text")},
		{Name: "REVIEW_SCORES"},
	})
	require.NoError(t, err)

	state, err := svc.Snapshot(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, []string{"REVIEWS"}, reader.inspected)
	assert.True(t, state.Collection("REVIEWS").Exists)
	assert.False(t, state.Collection("REVIEW_SCORES").Exists)

	plan, _, err := svc.Plan(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, []domain.PlanOperation{
		domain.CreateIndexOp("REVIEWS", domain.IndexSpec{Field: "text", Direction: domain.Descending}),
		domain.CreateCollectionOp("REVIEW_SCORES"),
	}, plan.Operations)
}

func TestSnapshotRetriesTransientReads(t *testing.T) {
	reader := &fakeReader{
		collections: []string{"REVIEWS"},
		failures: map[string]error{
			"indexes:REVIEWS": &domain.DriverError{Op: "listIndexes", Target: "REVIEWS", Transient: true, Err: errors.New("connection reset")},
		},
	}
	svc, err := NewService(reader, testOptions())
	require.NoError(t, err)
	model, _ := domain.NewSchemaModel(domain.SchemaMeta{Database: "UGC_DB"}, []domain.CollectionSpec{{Name: "REVIEWS"}})

	_, err = svc.Snapshot(context.Background(), model)
	require.NoError(t, err)
	assert.Len(t, reader.inspected, 2)
}

func TestSnapshotFailsOnPermanentReadError(t *testing.T) {
	denied := &domain.DriverError{Op: "listCollections", Err: errors.New("not authorized")}
	reader := &fakeReader{failures: map[string]error{"list": denied}}
	svc, err := NewService(reader, testOptions())
	require.NoError(t, err)
	model, _ := domain.NewSchemaModel(domain.SchemaMeta{Database: "UGC_DB"}, []domain.CollectionSpec{{Name: "REVIEWS"}})

	_, err = svc.Snapshot(context.Background(), model)
	assert.ErrorIs(t, err, denied)
}

func TestPlanSurfacesPlanError(t *testing.T) {
	reader := &fakeReader{
		collections: []string{"FILM_BOOKMARKS"},
		shardKeys:   map[string]domain.ShardKey{"FILM_BOOKMARKS": *hashed("film_id")},
	}
	svc, err := NewService(reader, testOptions())
	require.NoError(t, err)
	model, _ := domain.NewSchemaModel(domain.SchemaMeta{Database: "UGC_DB"}, []domain.CollectionSpec{
		{Name: "FILM_BOOKMARKS", ShardKey: hashed("user_id")},
	})

	_, _, err = svc.Plan(context.Background(), model)
	var planErr *domain.PlanError
	assert.ErrorAs(t, err, &planErr)
}
