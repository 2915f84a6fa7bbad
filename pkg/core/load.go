package core

import (
	"errors"
	"fmt"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// LoadResult counts what a bulk load inserted and what it skipped.
type LoadResult struct {
	Loaded  int
	Skipped int
}

func (r *LoadResult) add(err error) {
	if err != nil {
		r.Skipped++
		return
	}
	r.Loaded++
}

// Merge adds other into r.
func (r *LoadResult) Merge(other LoadResult) {
	r.Loaded += other.Loaded
	r.Skipped += other.Skipped
}

// LoadUsers inserts a batch of users under one write lock. Records whose id
// is already taken are skipped and counted.
func (db *DB) LoadUsers(users []types.User) LoadResult {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res LoadResult
	for _, u := range users {
		res.add(db.insertUser(u))
	}
	return res
}

// LoadLocations inserts a batch of locations under one write lock.
func (db *DB) LoadLocations(locations []types.Location) LoadResult {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res LoadResult
	for _, l := range locations {
		res.add(db.insertLocation(l))
	}
	return res
}

// LoadVisits inserts a batch of visits under one write lock and indexes them.
// Users and locations are not required to exist yet, so archives may be
// loaded in any file order.
func (db *DB) LoadVisits(visits []types.Visit) LoadResult {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res LoadResult
	for _, v := range visits {
		res.add(db.insertVisit(v))
	}
	return res
}

// CheckIndexes verifies that every visit is indexed under its current user,
// location and visited_at, and that no index entry is stale. Slots shared by
// two visits with the same owner and timestamp are reported as collisions,
// not errors.
func (db *DB) CheckIndexes() (collisions int, err error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var errs []error
	for id, v := range db.visits {
		byUser, ok := db.visitsByUser.get(v.User, v.VisitedAt)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("visit %d missing from user %d index", id, v.User))
		case byUser.ID != id:
			collisions++
		case byUser != v:
			errs = append(errs, fmt.Errorf("visit %d has a stale copy in user %d index", id, v.User))
		}

		byLocation, ok := db.visitsByLocation.get(v.Location, v.VisitedAt)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("visit %d missing from location %d index", id, v.Location))
		case byLocation.ID != id:
			collisions++
		case byLocation != v:
			errs = append(errs, fmt.Errorf("visit %d has a stale copy in location %d index", id, v.Location))
		}
	}

	for owner, bucket := range db.visitsByUser {
		bucket.Scan(func(ts types.Timestamp, entry types.Visit) bool {
			cur, ok := db.visits[entry.ID]
			if !ok || cur.User != owner || cur.VisitedAt != ts {
				errs = append(errs, fmt.Errorf("user %d index holds stale entry for visit %d at %d", owner, entry.ID, ts))
			}
			return true
		})
	}
	for owner, bucket := range db.visitsByLocation {
		bucket.Scan(func(ts types.Timestamp, entry types.Visit) bool {
			cur, ok := db.visits[entry.ID]
			if !ok || cur.Location != owner || cur.VisitedAt != ts {
				errs = append(errs, fmt.Errorf("location %d index holds stale entry for visit %d at %d", owner, entry.ID, ts))
			}
			return true
		})
	}

	if len(errs) > 0 {
		return collisions, fmt.Errorf("%w: %w", ErrInternal, errors.Join(errs...))
	}
	return collisions, nil
}
