package core

import (
	"fmt"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// CreateUser inserts u. It fails with ErrConflict if the id is taken.
func (db *DB) CreateUser(u types.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.insertUser(u)
}

// CreateLocation inserts l. It fails with ErrConflict if the id is taken.
func (db *DB) CreateLocation(l types.Location) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.insertLocation(l)
}

// CreateVisit inserts v and indexes it under its user and location.
// Both must exist, otherwise it fails with ErrInvalid and nothing changes.
func (db *DB) CreateVisit(v types.Visit) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[v.User]; !ok {
		return fmt.Errorf("visit %d: user %d does not exist: %w", v.ID, v.User, ErrInvalid)
	}
	if _, ok := db.locations[v.Location]; !ok {
		return fmt.Errorf("visit %d: location %d does not exist: %w", v.ID, v.Location, ErrInvalid)
	}
	return db.insertVisit(v)
}

func (db *DB) insertUser(u types.User) error {
	if _, ok := db.users[u.ID]; ok {
		return fmt.Errorf("user %d: %w", u.ID, ErrConflict)
	}
	db.users[u.ID] = u
	return nil
}

func (db *DB) insertLocation(l types.Location) error {
	if _, ok := db.locations[l.ID]; ok {
		return fmt.Errorf("location %d: %w", l.ID, ErrConflict)
	}
	db.locations[l.ID] = l
	return nil
}

// insertVisit skips referential checks; callers decide whether they apply.
func (db *DB) insertVisit(v types.Visit) error {
	if _, ok := db.visits[v.ID]; ok {
		return fmt.Errorf("visit %d: %w", v.ID, ErrConflict)
	}
	db.visits[v.ID] = v
	db.visitsByLocation.put(v.Location, v)
	db.visitsByUser.put(v.User, v)
	return nil
}

// UpdateUser overwrites the set fields of user id.
func (db *DB) UpdateUser(id types.UserID, p types.UserPatch) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if v, ok := p.Email.Get(); ok {
		u.Email = v
	}
	if v, ok := p.FirstName.Get(); ok {
		u.FirstName = v
	}
	if v, ok := p.LastName.Get(); ok {
		u.LastName = v
	}
	if v, ok := p.Gender.Get(); ok {
		u.Gender = v
	}
	if v, ok := p.BirthDate.Get(); ok {
		u.BirthDate = v
	}
	db.users[id] = u
	return nil
}

// UpdateLocation overwrites the set fields of location id.
func (db *DB) UpdateLocation(id types.LocationID, p types.LocationPatch) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	l, ok := db.locations[id]
	if !ok {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	if v, ok := p.Place.Get(); ok {
		l.Place = v
	}
	if v, ok := p.Country.Get(); ok {
		l.Country = v
	}
	if v, ok := p.City.Get(); ok {
		l.City = v
	}
	if v, ok := p.Distance.Get(); ok {
		l.Distance = v
	}
	db.locations[id] = l
	return nil
}

// UpdateVisit overwrites the set fields of visit id and moves its index
// entries when user, location or visited_at change.
//
// Every check runs before the first write, so a failed update leaves the
// store untouched. On success both index copies are rewritten even when only
// the mark changed.
func (db *DB) UpdateVisit(id types.VisitID, p types.VisitPatch) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	v, ok := db.visits[id]
	if !ok {
		return fmt.Errorf("visit %d: %w", id, ErrNotFound)
	}
	if loc, ok := p.Location.Get(); ok {
		if _, exists := db.locations[loc]; !exists {
			return fmt.Errorf("visit %d: location %d does not exist: %w", id, loc, ErrInvalid)
		}
		if !db.visitsByLocation.has(v.Location) {
			return fmt.Errorf("visit %d: no index bucket for location %d: %w", id, v.Location, ErrInternal)
		}
	}
	if user, ok := p.User.Get(); ok {
		if _, exists := db.users[user]; !exists {
			return fmt.Errorf("visit %d: user %d does not exist: %w", id, user, ErrInvalid)
		}
		if !db.visitsByUser.has(v.User) {
			return fmt.Errorf("visit %d: no index bucket for user %d: %w", id, v.User, ErrInternal)
		}
	}

	oldLocation, oldUser, oldVisitedAt := v.Location, v.User, v.VisitedAt

	if loc, ok := p.Location.Get(); ok {
		db.visitsByLocation.remove(oldLocation, oldVisitedAt, id)
		v.Location = loc
	}
	if user, ok := p.User.Get(); ok {
		db.visitsByUser.remove(oldUser, oldVisitedAt, id)
		v.User = user
	}
	if ts, ok := p.VisitedAt.Get(); ok {
		// Either entry may already be gone after a location or user move.
		db.visitsByLocation.remove(oldLocation, oldVisitedAt, id)
		db.visitsByUser.remove(oldUser, oldVisitedAt, id)
		v.VisitedAt = ts
	}
	if mark, ok := p.Mark.Get(); ok {
		v.Mark = mark
	}

	db.visits[id] = v
	db.visitsByLocation.put(v.Location, v)
	db.visitsByUser.put(v.User, v)
	return nil
}
