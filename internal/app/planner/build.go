package planner

import (
	"fmt"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// Build diffs the desired schema against a cluster snapshot. It has no side
// effects: the same inputs always give the same plan.
//
// Operations are grouped per collection in input order; within a collection
// creation comes before sharding, and sharding before indexes.
func Build(model domain.SchemaModel, state domain.ClusterState) (domain.Plan, error) {
	var plan domain.Plan
	for _, spec := range model.Collections() {
		live := state.Collection(spec.Name)

		if !live.Exists {
			plan.Operations = append(plan.Operations, domain.CreateCollectionOp(spec.Name))
		}

		if spec.ShardKey != nil {
			switch {
			case live.ShardKey == nil:
				plan.Operations = append(plan.Operations, domain.EnableShardingOp(spec.Name, *spec.ShardKey))
			case *live.ShardKey != *spec.ShardKey:
				return domain.Plan{}, &domain.PlanError{
					Collection: spec.Name,
					Reason:     fmt.Sprintf("sharded on %s, config declares %s", live.ShardKey, spec.ShardKey),
					Err:        domain.ErrShardKeyChange,
				}
			}
		}

		for _, index := range spec.Indexes {
			existing, ok := live.HasIndex(index.Key())
			if !ok {
				plan.Operations = append(plan.Operations, domain.CreateIndexOp(spec.Name, index))
				continue
			}
			if existing.Unique != index.Unique {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf(
					"%s: index %s exists with unique=%t, config declares unique=%t; left unchanged",
					spec.Name, index.Key(), existing.Unique, index.Unique,
				))
			}
		}
	}
	return plan, nil
}
