package core

import (
	"fmt"
	"math"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// User returns the user with the given id.
func (db *DB) User(id types.UserID) (types.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.users[id]
	if !ok {
		return types.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// Location returns the location with the given id.
func (db *DB) Location(id types.LocationID) (types.Location, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	l, ok := db.locations[id]
	if !ok {
		return types.Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return l, nil
}

// Visit returns the visit with the given id.
func (db *DB) Visit(id types.VisitID) (types.Visit, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	v, ok := db.visits[id]
	if !ok {
		return types.Visit{}, fmt.Errorf("visit %d: %w", id, ErrNotFound)
	}
	return v, nil
}

// UserVisits lists the visits of a user strictly between the filter's dates,
// in ascending visited_at order, joined with the visited location's place.
//
// An inverted or empty date range yields an empty list without touching the
// index.
func (db *DB) UserVisits(id types.UserID, f types.VisitsFilter) ([]types.VisitEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, ok := db.users[id]; !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	from := f.FromDate.Or(math.MinInt64)
	to := f.ToDate.Or(math.MaxInt64)
	if from >= to {
		return nil, nil
	}

	toDistance, byDistance := f.ToDistance.Get()
	country, byCountry := f.Country.Get()

	var (
		out []types.VisitEntry
		err error
	)
	db.visitsByUser.between(id, from, to, func(v types.Visit) bool {
		loc, ok := db.locations[v.Location]
		if !ok {
			err = fmt.Errorf("visit %d references location %d: %w", v.ID, v.Location, ErrInternal)
			return false
		}
		if byDistance && loc.Distance >= toDistance {
			return true
		}
		if byCountry && loc.Country != country {
			return true
		}
		out = append(out, types.VisitEntry{
			Mark:      v.Mark,
			VisitedAt: v.VisitedAt,
			Place:     loc.Place,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LocationAverage accumulates the marks of a location's visits strictly
// between the filter's dates, optionally restricted to visitors of a gender
// and of an age strictly between FromAge and ToAge.
//
// Ages become birth-date bounds relative to Now: FromAge yields the upper
// bound and ToAge the lower one.
func (db *DB) LocationAverage(id types.LocationID, f types.AverageFilter) (types.AverageRating, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var avg types.AverageRating
	if _, ok := db.locations[id]; !ok {
		return avg, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}

	maxBirth := types.Timestamp(math.MaxInt64)
	if age, ok := f.FromAge.Get(); ok {
		maxBirth = birthBound(db.now, age)
	}
	minBirth := types.Timestamp(math.MinInt64)
	if age, ok := f.ToAge.Get(); ok {
		minBirth = birthBound(db.now, age)
	}

	from := f.FromDate.Or(math.MinInt64)
	to := f.ToDate.Or(math.MaxInt64)
	if from >= to || minBirth >= maxBirth {
		return avg, nil
	}

	gender, byGender := f.Gender.Get()
	needsUser := byGender || f.FromAge.IsSet() || f.ToAge.IsSet()

	var err error
	db.visitsByLocation.between(id, from, to, func(v types.Visit) bool {
		if needsUser {
			u, ok := db.users[v.User]
			if !ok {
				err = fmt.Errorf("visit %d references user %d: %w", v.ID, v.User, ErrInternal)
				return false
			}
			if byGender && u.Gender != gender {
				return true
			}
			if u.BirthDate <= minBirth || u.BirthDate >= maxBirth {
				return true
			}
		}
		avg.Add(v.Mark)
		return true
	})
	if err != nil {
		return types.AverageRating{}, err
	}
	return avg, nil
}

// birthBound returns now - age*SecondsPerYear, saturating at the int64 limits.
func birthBound(now, age types.Timestamp) types.Timestamp {
	const limit = math.MaxInt64 / SecondsPerYear
	switch {
	case age > limit:
		return math.MinInt64
	case age < -limit:
		return math.MaxInt64
	}
	d := age * SecondsPerYear
	if d > 0 && now < math.MinInt64+d {
		return math.MinInt64
	}
	if d < 0 && now > math.MaxInt64+d {
		return math.MaxInt64
	}
	return now - d
}
