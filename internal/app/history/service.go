package history

import (
	"context"
	"fmt"
	"strings"
)

const DefaultListLimit = 20

type Service struct {
	store   Store
	encoder PlanEncoder
	decoder PlanDecoder
}

func NewService(store Store, encoder PlanEncoder, decoder PlanDecoder) *Service {
	return &Service{store: store, encoder: encoder, decoder: decoder}
}

// Record appends a finished run to the ledger.
func (s *Service) Record(ctx context.Context, record RunRecord) error {
	if strings.TrimSpace(record.RunID) == "" {
		return ErrRunIDRequired
	}
	if !record.State.IsTerminal() {
		return ErrInvalidState
	}
	snapshot, err := s.encoder.Encode(record.Plan)
	if err != nil {
		return fmt.Errorf("encode plan snapshot: %w", err)
	}
	return s.store.Append(ctx, StoredRun{RunRecord: record, PlanSnapshot: snapshot})
}

// List returns up to limit runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	stored, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]RunRecord, 0, len(stored))
	for _, run := range stored {
		record := run.RunRecord
		if len(run.PlanSnapshot) > 0 {
			plan, err := s.decoder.Decode(run.PlanSnapshot)
			if err != nil {
				return nil, fmt.Errorf("decode plan snapshot of %s: %w", run.RunID, err)
			}
			record.Plan = plan
		}
		records = append(records, record)
	}
	return records, nil
}
