package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/osvaldoandrade/provision/internal/domain"
)

type fakeStore struct {
	runs []StoredRun
}

func (f *fakeStore) Append(ctx context.Context, run StoredRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) List(ctx context.Context, limit int) ([]StoredRun, error) {
	var out []StoredRun
	for i := len(f.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.runs[i])
	}
	return out, nil
}

type fakeCodec struct {
	plans map[string]domain.Plan
}

func (f *fakeCodec) Encode(plan domain.Plan) ([]byte, error) {
	if f.plans == nil {
		f.plans = map[string]domain.Plan{}
	}
	key := fmt.Sprint(plan.Operations)
	f.plans[key] = plan
	return []byte(key), nil
}

func (f *fakeCodec) Decode(data []byte) (domain.Plan, error) {
	plan, ok := f.plans[string(data)]
	if !ok {
		return domain.Plan{}, errors.New("unknown snapshot")
	}
	return plan, nil
}

func TestRecordAndListNewestFirst(t *testing.T) {
	store := &fakeStore{}
	codec := &fakeCodec{}
	svc := NewService(store, codec, codec)

	plan := domain.Plan{Operations: []domain.PlanOperation{domain.CreateCollectionOp("REVIEWS")}}
	if err := svc.Record(context.Background(), RunRecord{RunID: "a", State: domain.RunCompleted, Plan: plan}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := svc.Record(context.Background(), RunRecord{RunID: "b", State: domain.RunAborted}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	runs, err := svc.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "b" || runs[1].RunID != "a" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[1].Plan.Len() != 1 {
		t.Fatalf("expected plan snapshot to be restored, got %v", runs[1].Plan)
	}
}

func TestRecordRejectsIncompleteRuns(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeCodec{}, &fakeCodec{})

	if err := svc.Record(context.Background(), RunRecord{State: domain.RunCompleted}); !errors.Is(err, ErrRunIDRequired) {
		t.Fatalf("expected ErrRunIDRequired, got %v", err)
	}
	if err := svc.Record(context.Background(), RunRecord{RunID: "a", State: domain.RunExecuting}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestListRejectsNegativeLimit(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeCodec{}, &fakeCodec{})
	if _, err := svc.List(context.Background(), -1); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}
