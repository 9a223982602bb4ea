package plancodec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// Wire layout, protobuf compatible:
//
//	message Plan {
//	  repeated Operation operations = 1;
//	  repeated string warnings = 2;
//	}
//	message Operation {
//	  Kind kind = 1;
//	  string collection = 2;
//	  string shard_field = 3;
//	  string shard_strategy = 4;
//	  string index_field = 5;
//	  sint32 index_direction = 6;
//	  bool index_unique = 7;
//	}
const (
	planOperations protowire.Number = 1
	planWarnings   protowire.Number = 2

	opKind          protowire.Number = 1
	opCollection    protowire.Number = 2
	opShardField    protowire.Number = 3
	opShardStrategy protowire.Number = 4
	opIndexField    protowire.Number = 5
	opIndexDir      protowire.Number = 6
	opIndexUnique   protowire.Number = 7
)

const (
	kindUnknown uint64 = iota
	kindCreateCollection
	kindEnableSharding
	kindCreateIndex
)

var ErrInvalidPlan = errors.New("invalid plan snapshot")

type Encoder struct{}

func (Encoder) Encode(plan domain.Plan) ([]byte, error) {
	return Encode(plan)
}

type Decoder struct{}

func (Decoder) Decode(data []byte) (domain.Plan, error) {
	return Decode(data)
}

func Encode(plan domain.Plan) ([]byte, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	var out []byte
	for _, op := range plan.Operations {
		body, err := encodeOperation(op)
		if err != nil {
			return nil, err
		}
		out = protowire.AppendTag(out, planOperations, protowire.BytesType)
		out = protowire.AppendBytes(out, body)
	}
	for _, warning := range plan.Warnings {
		out = protowire.AppendTag(out, planWarnings, protowire.BytesType)
		out = protowire.AppendString(out, warning)
	}
	return out, nil
}

func Decode(data []byte) (domain.Plan, error) {
	var plan domain.Plan
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return domain.Plan{}, decodeError(n)
		}
		data = data[n:]

		switch {
		case num == planOperations && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return domain.Plan{}, decodeError(n)
			}
			op, err := decodeOperation(body)
			if err != nil {
				return domain.Plan{}, err
			}
			plan.Operations = append(plan.Operations, op)
			data = data[n:]
		case num == planWarnings && typ == protowire.BytesType:
			warning, n := protowire.ConsumeString(data)
			if n < 0 {
				return domain.Plan{}, decodeError(n)
			}
			plan.Warnings = append(plan.Warnings, warning)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return domain.Plan{}, decodeError(n)
			}
			data = data[n:]
		}
	}
	if err := plan.Validate(); err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return plan, nil
}

func encodeOperation(op domain.PlanOperation) ([]byte, error) {
	kind, err := toWireKind(op.Kind)
	if err != nil {
		return nil, err
	}
	var out []byte
	out = protowire.AppendTag(out, opKind, protowire.VarintType)
	out = protowire.AppendVarint(out, kind)
	out = protowire.AppendTag(out, opCollection, protowire.BytesType)
	out = protowire.AppendString(out, op.Collection)

	if op.ShardKey != nil {
		out = protowire.AppendTag(out, opShardField, protowire.BytesType)
		out = protowire.AppendString(out, op.ShardKey.Field)
		out = protowire.AppendTag(out, opShardStrategy, protowire.BytesType)
		out = protowire.AppendString(out, string(op.ShardKey.Strategy))
	}
	if op.Index != nil {
		out = protowire.AppendTag(out, opIndexField, protowire.BytesType)
		out = protowire.AppendString(out, op.Index.Field)
		out = protowire.AppendTag(out, opIndexDir, protowire.VarintType)
		out = protowire.AppendVarint(out, protowire.EncodeZigZag(int64(op.Index.Direction)))
		if op.Index.Unique {
			out = protowire.AppendTag(out, opIndexUnique, protowire.VarintType)
			out = protowire.AppendVarint(out, protowire.EncodeBool(true))
		}
	}
	return out, nil
}

func decodeOperation(data []byte) (domain.PlanOperation, error) {
	var (
		kind       uint64
		collection string
		shardField string
		strategy   string
		indexField string
		direction  int64
		unique     bool
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return domain.PlanOperation{}, decodeError(n)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return domain.PlanOperation{}, decodeError(n)
			}
			data = data[n:]
			switch num {
			case opKind:
				kind = v
			case opIndexDir:
				direction = protowire.DecodeZigZag(v)
			case opIndexUnique:
				unique = protowire.DecodeBool(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return domain.PlanOperation{}, decodeError(n)
			}
			data = data[n:]
			switch num {
			case opCollection:
				collection = v
			case opShardField:
				shardField = v
			case opShardStrategy:
				strategy = v
			case opIndexField:
				indexField = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return domain.PlanOperation{}, decodeError(n)
			}
			data = data[n:]
		}
	}

	switch kind {
	case kindCreateCollection:
		return domain.CreateCollectionOp(collection), nil
	case kindEnableSharding:
		parsed, err := domain.ParseShardStrategy(strategy)
		if err != nil {
			return domain.PlanOperation{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
		}
		return domain.EnableShardingOp(collection, domain.ShardKey{Field: shardField, Strategy: parsed}), nil
	case kindCreateIndex:
		dir, err := domain.ParseDirection(int(direction))
		if err != nil {
			return domain.PlanOperation{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
		}
		return domain.CreateIndexOp(collection, domain.IndexSpec{Field: indexField, Direction: dir, Unique: unique}), nil
	default:
		return domain.PlanOperation{}, fmt.Errorf("%w: unknown operation kind %d", ErrInvalidPlan, kind)
	}
}

func toWireKind(kind domain.OpKind) (uint64, error) {
	switch kind {
	case domain.OpCreateCollection:
		return kindCreateCollection, nil
	case domain.OpEnableSharding:
		return kindEnableSharding, nil
	case domain.OpCreateIndex:
		return kindCreateIndex, nil
	default:
		return kindUnknown, fmt.Errorf("invalid operation kind: %q", kind)
	}
}

func decodeError(n int) error {
	return fmt.Errorf("%w: %v", ErrInvalidPlan, protowire.ParseError(n))
}
