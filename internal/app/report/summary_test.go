package report

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/domain"
)

func reviewsPlan() domain.Plan {
	return domain.Plan{
		Operations: []domain.PlanOperation{
			domain.CreateCollectionOp("REVIEWS"),
			domain.CreateIndexOp("REVIEWS", domain.IndexSpec{Field: "film_id", Direction: domain.Descending}),
			domain.CreateIndexOp("REVIEWS", domain.IndexSpec{Field: "text", Direction: domain.Descending}),
		},
		Warnings: []string{"REVIEWS: index author_-1 unique drift"},
	}
}

func testModel(t *testing.T) *domain.SchemaModel {
	t.Helper()
	model, err := domain.NewSchemaModel(domain.SchemaMeta{
		Database:    "UGC_DB",
		Version:     "v1",
		Fingerprint: "abc",
		Revision:    domain.Revision{Commit: "0123456789abcdef"},
	}, []domain.CollectionSpec{{Name: "REVIEWS"}})
	require.NoError(t, err)
	return &model
}

func TestBuildCountsOutcomes(t *testing.T) {
	plan := reviewsPlan()
	execErr := &domain.ExecutionError{Op: plan.Operations[1], Attempts: 3, Err: errors.New("boom")}
	result := executor.Result{Outcomes: []executor.Outcome{
		{Op: plan.Operations[0], Status: executor.StatusSkipped, Attempts: 1, Reason: executor.ReasonAlreadyExists},
		{Op: plan.Operations[1], Status: executor.StatusFailed, Attempts: 3, Retries: 2, Err: execErr},
		{Op: plan.Operations[2], Status: executor.StatusNotRun, Reason: executor.ReasonPriorFailure},
	}}

	summary := Build(Input{
		RunID:  "01J0000000000000000000000",
		State:  domain.RunAborted,
		Model:  testModel(t),
		Plan:   plan,
		Result: result,
		Err:    execErr,
	})

	assert.Equal(t, Counts{Skipped: 1, Failed: 1, NotRun: 1, Retries: 2}, summary.Counts)
	assert.Equal(t, "UGC_DB", summary.Database)
	assert.Equal(t, "v1", summary.SchemaVersion)
	assert.False(t, summary.Succeeded())
	require.NotNil(t, summary.FirstFailure)
	assert.Equal(t, "create_index", summary.FirstFailure.Operation)
	assert.Equal(t, "REVIEWS", summary.FirstFailure.Target)
	assert.Equal(t, "film_id:-1", summary.Operations[1].Detail)
}

func TestBuildDryRunMarksOperationsPlanned(t *testing.T) {
	summary := Build(Input{State: domain.RunCompleted, DryRun: true, Model: testModel(t), Plan: reviewsPlan()})

	assert.Equal(t, 3, summary.Counts.Planned)
	assert.Nil(t, summary.FirstFailure)
	for _, line := range summary.Operations {
		assert.Equal(t, StatusPlanned, line.Status)
	}
}

func TestBuildReportsPlanFailure(t *testing.T) {
	err := &domain.PlanError{Collection: "FILM_BOOKMARKS", Err: domain.ErrShardKeyChange}
	summary := Build(Input{State: domain.RunAborted, Model: testModel(t), Err: err})

	require.NotNil(t, summary.FirstFailure)
	assert.Equal(t, "plan", summary.FirstFailure.Operation)
	assert.Equal(t, "FILM_BOOKMARKS", summary.FirstFailure.Target)
	assert.Empty(t, summary.Operations)
}

func TestBuildReportsConfigFailureWithoutModel(t *testing.T) {
	err := &domain.ConfigError{Source: "ugc.json", Reason: "duplicate"}
	summary := Build(Input{State: domain.RunAborted, Err: err})

	require.NotNil(t, summary.FirstFailure)
	assert.Equal(t, "load", summary.FirstFailure.Operation)
	assert.Equal(t, "ugc.json", summary.FirstFailure.Target)
	assert.Empty(t, summary.Database)
}

func TestWriteTextIncludesTableAndCounts(t *testing.T) {
	summary := Build(Input{RunID: "run-1", State: domain.RunCompleted, DryRun: true, Model: testModel(t), Plan: reviewsPlan()})

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, summary))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "dry-run")
	assert.Contains(t, out, "film_id:-1")
	assert.Contains(t, out, "planned=3 created=0")
	assert.Contains(t, out, "warning: REVIEWS")
}

func TestWriteTextEmptyPlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Build(Input{State: domain.RunCompleted})))
	assert.Contains(t, buf.String(), "no changes")
}

func TestWriteJSON(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	summary := Build(Input{RunID: "run-1", State: domain.RunCompleted, DryRun: true, Plan: reviewsPlan(), StartedAt: started, FinishedAt: started})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, summary))
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, summary.Counts, decoded.Counts)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Operations, 3)
	assert.True(t, decoded.StartedAt.Equal(started))
}

func TestLogWritesCounts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Log(logger, Build(Input{RunID: "run-1", State: domain.RunAborted, Err: errors.New("dial tcp: refused")}))
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "failed_op=run")
}
