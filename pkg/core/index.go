package core

import (
	"github.com/sanonone/travelsdb/pkg/core/types"
	"github.com/tidwall/btree"
)

// visitIndex maps an owner id (user or location) to that owner's visits
// ordered by visited_at. Each bucket holds copies of the visits, so every
// mutation of a visit must be written back with put.
//
// A bucket is keyed by timestamp alone: two visits of one owner with the same
// visited_at share a slot and the later write wins.
type visitIndex[K comparable] map[K]*btree.Map[types.Timestamp, types.Visit]

func (ix visitIndex[K]) put(owner K, v types.Visit) {
	bucket, ok := ix[owner]
	if !ok {
		bucket = new(btree.Map[types.Timestamp, types.Visit])
		ix[owner] = bucket
	}
	bucket.Set(v.VisitedAt, v)
}

// remove drops the entry for visit id at ts. It reports whether the owner
// has a bucket at all. An entry that belongs to another visit is left alone.
func (ix visitIndex[K]) remove(owner K, ts types.Timestamp, id types.VisitID) bool {
	bucket, ok := ix[owner]
	if !ok {
		return false
	}
	if cur, found := bucket.Get(ts); found && cur.ID == id {
		bucket.Delete(ts)
	}
	return true
}

func (ix visitIndex[K]) has(owner K) bool {
	_, ok := ix[owner]
	return ok
}

// between calls fn for each visit of owner with from < visited_at < to in
// ascending order until fn returns false.
func (ix visitIndex[K]) between(owner K, from, to types.Timestamp, fn func(types.Visit) bool) {
	bucket, ok := ix[owner]
	if !ok || from >= to {
		return
	}
	bucket.Ascend(from, func(ts types.Timestamp, v types.Visit) bool {
		if ts == from {
			return true
		}
		if ts >= to {
			return false
		}
		return fn(v)
	})
}

func (ix visitIndex[K]) get(owner K, ts types.Timestamp) (types.Visit, bool) {
	bucket, ok := ix[owner]
	if !ok {
		return types.Visit{}, false
	}
	return bucket.Get(ts)
}

func (ix visitIndex[K]) entries() int {
	n := 0
	for _, bucket := range ix {
		n += bucket.Len()
	}
	return n
}
