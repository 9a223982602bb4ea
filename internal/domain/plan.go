package domain

import "fmt"

type OpKind string

const (
	OpCreateCollection OpKind = "create_collection"
	OpEnableSharding   OpKind = "enable_sharding"
	OpCreateIndex      OpKind = "create_index"
)

func (k OpKind) IsValid() bool {
	switch k {
	case OpCreateCollection, OpEnableSharding, OpCreateIndex:
		return true
	default:
		return false
	}
}

// rank orders kinds inside one collection: the store needs the collection
// before it can be sharded and sharding before indexes are built.
func (k OpKind) rank() int {
	switch k {
	case OpCreateCollection:
		return 0
	case OpEnableSharding:
		return 1
	case OpCreateIndex:
		return 2
	default:
		return 3
	}
}

// PlanOperation is one step of a plan. ShardKey is set for OpEnableSharding
// and Index for OpCreateIndex.
type PlanOperation struct {
	Kind       OpKind
	Collection string
	ShardKey   *ShardKey
	Index      *IndexSpec
}

func CreateCollectionOp(collection string) PlanOperation {
	return PlanOperation{Kind: OpCreateCollection, Collection: collection}
}

func EnableShardingOp(collection string, key ShardKey) PlanOperation {
	return PlanOperation{Kind: OpEnableSharding, Collection: collection, ShardKey: &key}
}

func CreateIndexOp(collection string, index IndexSpec) PlanOperation {
	return PlanOperation{Kind: OpCreateIndex, Collection: collection, Index: &index}
}

// Detail renders the operation parameters without the target.
func (op PlanOperation) Detail() string {
	switch op.Kind {
	case OpEnableSharding:
		if op.ShardKey != nil {
			return op.ShardKey.String()
		}
	case OpCreateIndex:
		if op.Index != nil {
			detail := op.Index.Key().String()
			if op.Index.Unique {
				detail += " unique"
			}
			return detail
		}
	}
	return ""
}

func (op PlanOperation) String() string {
	if detail := op.Detail(); detail != "" {
		return fmt.Sprintf("%s(%s, %s)", op.Kind, op.Collection, detail)
	}
	return fmt.Sprintf("%s(%s)", op.Kind, op.Collection)
}

type Plan struct {
	Operations []PlanOperation
	Warnings   []string
}

func (p Plan) Len() int {
	return len(p.Operations)
}

func (p Plan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// Validate checks that operations of each collection appear in rank order.
func (p Plan) Validate() error {
	last := make(map[string]int)
	for _, op := range p.Operations {
		if !op.Kind.IsValid() {
			return fmt.Errorf("invalid operation kind %q", op.Kind)
		}
		rank := op.Kind.rank()
		if prev, ok := last[op.Collection]; ok && rank < prev {
			return fmt.Errorf("operation %s out of order", op)
		}
		last[op.Collection] = rank
	}
	return nil
}

// Collections returns the distinct targets in first-appearance order.
func (p Plan) Collections() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, op := range p.Operations {
		if _, ok := seen[op.Collection]; ok {
			continue
		}
		seen[op.Collection] = struct{}{}
		names = append(names, op.Collection)
	}
	return names
}

func (p Plan) Has(kind OpKind) bool {
	for _, op := range p.Operations {
		if op.Kind == kind {
			return true
		}
	}
	return false
}
