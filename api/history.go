package api

import (
	"sync"

	"github.com/google/btree"

	"github.com/guru-fund/fundd/api/types"
)

const valueTreeDegree = 32

// valuePointItem wraps a ValuePoint for btree storage.
// Implements btree.Item interface
type valuePointItem struct {
	point *types.ValuePoint
}

// Less implements btree.Item interface - ascending order by timestamp
func (a *valuePointItem) Less(b btree.Item) bool {
	return a.point.Timestamp < b.(*valuePointItem).point.Timestamp
}

// ValueIndex is an in-memory chronological index of fund-value observations
// with O(log n) insert and range queries. The keeper's store remains the
// source of truth; the index only serves read traffic.
type ValueIndex struct {
	tree *btree.BTree
	mu   sync.RWMutex
}

// NewValueIndex creates an empty value index
func NewValueIndex() *ValueIndex {
	return &ValueIndex{
		tree: btree.New(valueTreeDegree),
	}
}

// Insert adds or replaces the observation at the point's timestamp
func (idx *ValueIndex) Insert(point *types.ValuePoint) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.ReplaceOrInsert(&valuePointItem{point: point})
}

// Range returns observations within [from, to] in chronological order,
// capped at limit (0 means no cap). Zero bounds are open-ended.
func (idx *ValueIndex) Range(from, to int64, limit int) []*types.ValuePoint {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var points []*types.ValuePoint
	idx.tree.AscendGreaterOrEqual(&valuePointItem{point: &types.ValuePoint{Timestamp: from}}, func(item btree.Item) bool {
		p := item.(*valuePointItem).point
		if to != 0 && p.Timestamp > to {
			return false
		}
		points = append(points, p)
		return limit == 0 || len(points) < limit
	})
	return points
}

// Latest returns the most recent observation, or nil when empty
func (idx *ValueIndex) Latest() *types.ValuePoint {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	max := idx.tree.Max()
	if max == nil {
		return nil
	}
	return max.(*valuePointItem).point
}

// Len returns the number of indexed observations
func (idx *ValueIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}
