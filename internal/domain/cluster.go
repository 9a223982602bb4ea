package domain

// CollectionState is what the store reports for one collection.
type CollectionState struct {
	Exists   bool
	ShardKey *ShardKey
	Indexes  []IndexSpec
}

func (s CollectionState) HasIndex(key IndexKey) (IndexSpec, bool) {
	for _, index := range s.Indexes {
		if index.Key() == key {
			return index, true
		}
	}
	return IndexSpec{}, false
}

// ClusterState is a read-only snapshot taken at plan time.
type ClusterState struct {
	collections map[string]CollectionState
}

func NewClusterState(collections map[string]CollectionState) ClusterState {
	copied := make(map[string]CollectionState, len(collections))
	for name, state := range collections {
		entry := CollectionState{Exists: state.Exists}
		if state.ShardKey != nil {
			key := *state.ShardKey
			entry.ShardKey = &key
		}
		entry.Indexes = append([]IndexSpec(nil), state.Indexes...)
		copied[name] = entry
	}
	return ClusterState{collections: copied}
}

// EmptyClusterState describes a cluster with none of the collections present.
func EmptyClusterState() ClusterState {
	return ClusterState{}
}

func (s ClusterState) Collection(name string) CollectionState {
	state, ok := s.collections[name]
	if !ok {
		return CollectionState{}
	}
	return state
}

func (s ClusterState) Len() int {
	return len(s.collections)
}
