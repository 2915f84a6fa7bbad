// Package core provides the in-memory store behind travelsdb.
//
// DB owns the three primary maps (users, locations, visits) and the two
// secondary indices that order each user's and each location's visits by
// visited_at. A single sync.RWMutex guards all of it: queries share the read
// lock, mutations take the write lock and run to completion before releasing
// it. No method performs I/O while holding the lock.
package core

import (
	"sync"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// SecondsPerYear is 365.25 days, used to turn ages into birth-date bounds.
const SecondsPerYear types.Timestamp = 31557600

// DB is the shared, lock-guarded entity store.
type DB struct {
	mu sync.RWMutex

	// now is the reference time for age filters, fixed at construction.
	now types.Timestamp

	users     map[types.UserID]types.User
	locations map[types.LocationID]types.Location
	visits    map[types.VisitID]types.Visit

	visitsByUser     visitIndex[types.UserID]
	visitsByLocation visitIndex[types.LocationID]
}

// NewDB returns an empty store that evaluates age filters relative to now.
func NewDB(now types.Timestamp) *DB {
	return &DB{
		now:              now,
		users:            make(map[types.UserID]types.User),
		locations:        make(map[types.LocationID]types.Location),
		visits:           make(map[types.VisitID]types.Visit),
		visitsByUser:     make(visitIndex[types.UserID]),
		visitsByLocation: make(visitIndex[types.LocationID]),
	}
}

// Now returns the reference time the store was built with.
func (db *DB) Now() types.Timestamp {
	return db.now
}

// Stats is a point-in-time count of records and index buckets.
type Stats struct {
	Users           int `json:"users"`
	Locations       int `json:"locations"`
	Visits          int `json:"visits"`
	UserBuckets     int `json:"user_buckets"`
	LocationBuckets int `json:"location_buckets"`
	// UserIndexed and LocationIndexed fall short of Visits only when
	// timestamps collide within a bucket.
	UserIndexed     int `json:"user_indexed"`
	LocationIndexed int `json:"location_indexed"`
}

// Stats counts records under the read lock.
func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return Stats{
		Users:           len(db.users),
		Locations:       len(db.locations),
		Visits:          len(db.visits),
		UserBuckets:     len(db.visitsByUser),
		LocationBuckets: len(db.visitsByLocation),
		UserIndexed:     db.visitsByUser.entries(),
		LocationIndexed: db.visitsByLocation.entries(),
	}
}
