package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// DefaultDirection matches the descending single-field indexes the UGC
// collections have always been created with.
const DefaultDirection = Descending

func (d Direction) IsValid() bool {
	return d == Ascending || d == Descending
}

func (d Direction) String() string {
	return strconv.Itoa(int(d))
}

func ParseDirection(value int) (Direction, error) {
	d := Direction(value)
	if !d.IsValid() {
		return 0, fmt.Errorf("invalid index direction: %d", value)
	}
	return d, nil
}

type IndexSpec struct {
	Field     string
	Direction Direction
	Unique    bool
}

// Key identifies an index for diffing. Uniqueness is not part of the key.
func (i IndexSpec) Key() IndexKey {
	return IndexKey{Field: i.Field, Direction: i.Direction}
}

// Name is the index name the server assigns by default.
func (i IndexSpec) Name() string {
	return i.Field + "_" + i.Direction.String()
}

type IndexKey struct {
	Field     string
	Direction Direction
}

func (k IndexKey) String() string {
	return k.Field + ":" + k.Direction.String()
}

type ShardStrategy string

const (
	ShardHashed ShardStrategy = "hashed"
	ShardRange  ShardStrategy = "range"
)

const DefaultShardStrategy = ShardHashed

func (s ShardStrategy) IsValid() bool {
	return s == ShardHashed || s == ShardRange
}

func ParseShardStrategy(value string) (ShardStrategy, error) {
	parsed := ShardStrategy(strings.TrimSpace(value))
	if parsed == "" {
		return DefaultShardStrategy, nil
	}
	if !parsed.IsValid() {
		return "", fmt.Errorf("invalid shard strategy: %s", value)
	}
	return parsed, nil
}

type ShardKey struct {
	Field    string
	Strategy ShardStrategy
}

func (k ShardKey) Hashed() bool {
	return k.Strategy == ShardHashed
}

func (k ShardKey) String() string {
	if k.Field == "" {
		return ""
	}
	return k.Field + ":" + string(k.Strategy)
}

type CollectionSpec struct {
	Name     string
	ShardKey *ShardKey
	Indexes  []IndexSpec
}

func (c CollectionSpec) clone() CollectionSpec {
	out := CollectionSpec{Name: c.Name}
	if c.ShardKey != nil {
		key := *c.ShardKey
		out.ShardKey = &key
	}
	out.Indexes = append([]IndexSpec(nil), c.Indexes...)
	return out
}

// SchemaModel is the desired state of one database. Construct it with
// NewSchemaModel; the accessors hand out copies so a loaded model cannot be
// changed underneath the planner.
type SchemaModel struct {
	database    string
	version     string
	fingerprint string
	revision    Revision
	collections []CollectionSpec
}

// Revision records where the configuration came from when it is tracked in git.
type Revision struct {
	Commit string
	Dirty  bool
}

func (r Revision) String() string {
	if r.Commit == "" {
		return ""
	}
	if r.Dirty {
		return r.Commit + "+dirty"
	}
	return r.Commit
}

type SchemaMeta struct {
	Database    string
	Version     string
	Fingerprint string
	Revision    Revision
}

func NewSchemaModel(meta SchemaMeta, collections []CollectionSpec) (SchemaModel, error) {
	if strings.TrimSpace(meta.Database) == "" {
		return SchemaModel{}, ErrDatabaseRequired
	}
	if err := ValidateDatabaseName(meta.Database); err != nil {
		return SchemaModel{}, err
	}
	seen := make(map[string]struct{}, len(collections))
	copied := make([]CollectionSpec, 0, len(collections))
	for _, spec := range collections {
		if err := spec.Validate(); err != nil {
			return SchemaModel{}, err
		}
		if _, ok := seen[spec.Name]; ok {
			return SchemaModel{}, fmt.Errorf("%w: %s", ErrDuplicateCollection, spec.Name)
		}
		seen[spec.Name] = struct{}{}
		copied = append(copied, spec.clone())
	}
	return SchemaModel{
		database:    meta.Database,
		version:     meta.Version,
		fingerprint: meta.Fingerprint,
		revision:    meta.Revision,
		collections: copied,
	}, nil
}

func (c CollectionSpec) Validate() error {
	if err := ValidateCollectionName(c.Name); err != nil {
		return err
	}
	if c.ShardKey != nil {
		if strings.TrimSpace(c.ShardKey.Field) == "" {
			return fmt.Errorf("%w: %s", ErrShardKeyRequired, c.Name)
		}
		if !c.ShardKey.Strategy.IsValid() {
			return fmt.Errorf("invalid shard strategy %q for %s", c.ShardKey.Strategy, c.Name)
		}
	}
	seen := make(map[IndexKey]struct{}, len(c.Indexes))
	for _, index := range c.Indexes {
		if strings.TrimSpace(index.Field) == "" {
			return fmt.Errorf("%w: %s", ErrIndexFieldRequired, c.Name)
		}
		if !index.Direction.IsValid() {
			return fmt.Errorf("invalid index direction %d on %s.%s", index.Direction, c.Name, index.Field)
		}
		if _, ok := seen[index.Key()]; ok {
			return fmt.Errorf("%w: %s %s", ErrDuplicateIndex, c.Name, index.Key())
		}
		seen[index.Key()] = struct{}{}
	}
	return nil
}

func (m SchemaModel) Database() string    { return m.database }
func (m SchemaModel) Version() string     { return m.version }
func (m SchemaModel) Fingerprint() string { return m.fingerprint }
func (m SchemaModel) Revision() Revision  { return m.revision }
func (m SchemaModel) Len() int            { return len(m.collections) }

func (m SchemaModel) Collections() []CollectionSpec {
	out := make([]CollectionSpec, 0, len(m.collections))
	for _, spec := range m.collections {
		out = append(out, spec.clone())
	}
	return out
}

func (m SchemaModel) Names() []string {
	names := make([]string, 0, len(m.collections))
	for _, spec := range m.collections {
		names = append(names, spec.Name)
	}
	return names
}
