package mongostore

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// indexDocument is the subset of a listIndexes entry the planner needs.
type indexDocument struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// shardDocument is the subset of a config.collections entry.
type shardDocument struct {
	Key     bson.D `bson:"key"`
	Dropped bool   `bson:"dropped"`
}

// parseIndex reports the single-field index described by doc. Compound,
// hashed, text and geo indexes are not single-field and are ignored.
func parseIndex(doc indexDocument) (domain.IndexSpec, bool) {
	if len(doc.Key) != 1 {
		return domain.IndexSpec{}, false
	}
	n, ok := numericKey(doc.Key[0].Value)
	if !ok {
		return domain.IndexSpec{}, false
	}
	dir, err := domain.ParseDirection(n)
	if err != nil {
		return domain.IndexSpec{}, false
	}
	return domain.IndexSpec{Field: doc.Key[0].Key, Direction: dir, Unique: doc.Unique}, true
}

// parseShardKey maps a live shard key pattern to a ShardKey. Compound keys
// are joined with commas and reported as range keys so they never equal a
// declared single-field key.
func parseShardKey(key bson.D) (domain.ShardKey, bool) {
	if len(key) == 0 {
		return domain.ShardKey{}, false
	}
	if len(key) > 1 {
		fields := make([]string, 0, len(key))
		for _, elem := range key {
			fields = append(fields, elem.Key)
		}
		return domain.ShardKey{Field: strings.Join(fields, ","), Strategy: domain.ShardRange}, true
	}
	if s, ok := key[0].Value.(string); ok && s == "hashed" {
		return domain.ShardKey{Field: key[0].Key, Strategy: domain.ShardHashed}, true
	}
	return domain.ShardKey{Field: key[0].Key, Strategy: domain.ShardRange}, true
}

func shardKeyPattern(field string, hashed bool) bson.D {
	if hashed {
		return bson.D{{Key: field, Value: "hashed"}}
	}
	return bson.D{{Key: field, Value: int32(1)}}
}

func numericKey(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
