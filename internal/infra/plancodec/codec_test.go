package plancodec

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/osvaldoandrade/provision/internal/domain"
)

func samplePlan() domain.Plan {
	return domain.Plan{
		Operations: []domain.PlanOperation{
			domain.CreateCollectionOp("FILM_RATINGS"),
			domain.EnableShardingOp("FILM_RATINGS", domain.ShardKey{Field: "user_id", Strategy: domain.ShardHashed}),
			domain.CreateIndexOp("FILM_RATINGS", domain.IndexSpec{Field: "score", Direction: domain.Descending}),
			domain.EnableShardingOp("REVIEW_SCORES", domain.ShardKey{Field: "review_id", Strategy: domain.ShardRange}),
			domain.CreateIndexOp("REVIEW_SCORES", domain.IndexSpec{Field: "review_id", Direction: domain.Ascending, Unique: true}),
		},
		Warnings: []string{"REVIEWS: unique drift"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	plan := samplePlan()

	data, err := Encode(plan)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !reflect.DeepEqual(decoded, plan) {
		t.Fatalf("round trip mismatch:\nwant %v\ngot  %v", plan, decoded)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	first, err := Encode(samplePlan())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	second, err := Encode(samplePlan())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected deterministic encoding")
	}
}

func TestEncodeEmptyPlan(t *testing.T) {
	data, err := Encode(domain.Plan{})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty encoding, got %x", data)
	}
	decoded, err := Decode(data)
	if err != nil || !decoded.IsEmpty() {
		t.Fatalf("expected empty plan, got %v (%v)", decoded, err)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	data, err := Encode(samplePlan())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.Len() != samplePlan().Len() {
		t.Fatalf("expected %d operations, got %d", samplePlan().Len(), decoded.Len())
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	data, err := Encode(samplePlan())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := Decode(data[:len(data)-3]); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	var body []byte
	body = protowire.AppendTag(body, opKind, protowire.VarintType)
	body = protowire.AppendVarint(body, 42)
	var data []byte
	data = protowire.AppendTag(data, planOperations, protowire.BytesType)
	data = protowire.AppendBytes(data, body)

	if _, err := Decode(data); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}
