package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

func requireIndexesConsistent(t *testing.T, db *DB) {
	t.Helper()
	collisions, err := db.CheckIndexes()
	require.NoError(t, err)
	require.Zero(t, collisions)
}

func TestCreateConflicts(t *testing.T) {
	db := newTestDB(t)
	u, err := db.User(1)
	require.NoError(t, err)

	err = db.CreateUser(u)
	require.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, KindInvalid, KindOf(err))

	err = db.CreateLocation(types.Location{ID: 2, Place: "другое"})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 1, Mark: 1}))
	err = db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 1, Mark: 1})
	assert.ErrorIs(t, err, ErrConflict)
	requireIndexesConsistent(t, db)
}

func TestCreateVisitReferentialGuard(t *testing.T) {
	db := newTestDB(t)
	before := db.Stats()

	err := db.CreateVisit(types.Visit{ID: 1, User: 99, Location: 1, VisitedAt: 1, Mark: 1})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrConflict)

	err = db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 99, VisitedAt: 1, Mark: 1})
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Equal(t, before, db.Stats())
	_, err = db.Visit(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserAndLocation(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpdateUser(1, types.UserPatch{Email: types.Of("new@mail.ru"), BirthDate: types.Of[types.Timestamp](-100)}))
	u, err := db.User(1)
	require.NoError(t, err)
	assert.Equal(t, "new@mail.ru", u.Email)
	assert.Equal(t, types.Timestamp(-100), u.BirthDate)
	assert.Equal(t, "Данила", u.FirstName)

	require.NoError(t, db.UpdateLocation(2, types.LocationPatch{Country: types.Of("Германия"), Distance: types.Of[uint32](77)}))
	l, err := db.Location(2)
	require.NoError(t, err)
	assert.Equal(t, "Германия", l.Country)
	assert.Equal(t, uint32(77), l.Distance)
	assert.Equal(t, "Ратуша", l.Place)

	assert.ErrorIs(t, db.UpdateUser(5, types.UserPatch{}), ErrNotFound)
	assert.ErrorIs(t, db.UpdateLocation(5, types.LocationPatch{}), ErrNotFound)
}

func TestUpdateLocationIsSeenByQueries(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 10, Mark: 2}))

	require.NoError(t, db.UpdateLocation(1, types.LocationPatch{Place: types.Of("Кремль"), Country: types.Of("Чехия")}))
	got, err := db.UserVisits(1, types.VisitsFilter{Country: types.Of("Чехия")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Кремль", got[0].Place)
}

func TestUpdateVisitMovesIndexEntries(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 4}))

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{Location: types.Of[types.LocationID](2)}))
	requireIndexesConsistent(t, db)
	avg, err := db.LocationAverage(1, types.AverageFilter{})
	require.NoError(t, err)
	assert.Equal(t, "0", avg.Format())
	avg, err = db.LocationAverage(2, types.AverageFilter{})
	require.NoError(t, err)
	assert.Equal(t, "4.00000", avg.Format())

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{User: types.Of[types.UserID](2)}))
	requireIndexesConsistent(t, db)
	got, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = db.UserVisits(2, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Equal(t, []types.VisitEntry{{Mark: 4, VisitedAt: 100, Place: "Ратуша"}}, got)

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{VisitedAt: types.Of[types.Timestamp](500)}))
	requireIndexesConsistent(t, db)
	got, err = db.UserVisits(2, types.VisitsFilter{ToDate: types.Of[types.Timestamp](400)})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{
		Location:  types.Of[types.LocationID](1),
		User:      types.Of[types.UserID](1),
		VisitedAt: types.Of[types.Timestamp](50),
		Mark:      types.Of[uint8](1),
	}))
	requireIndexesConsistent(t, db)
	v, err := db.Visit(1)
	require.NoError(t, err)
	assert.Equal(t, types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 50, Mark: 1}, v)
}

func TestUpdateVisitRefreshesMarkInIndexes(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 4}))

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{Mark: types.Of[uint8](2)}))
	requireIndexesConsistent(t, db)

	avg, err := db.LocationAverage(1, types.AverageFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2.00000", avg.Format())
	got, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), got[0].Mark)
}

func TestUpdateVisitEmptyPatchIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 4}))
	require.NoError(t, db.CreateVisit(types.Visit{ID: 2, User: 1, Location: 2, VisitedAt: 200, Mark: 1}))

	before := db.Stats()
	beforeList, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)

	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{}))

	assert.Equal(t, before, db.Stats())
	afterList, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Equal(t, beforeList, afterList)
	requireIndexesConsistent(t, db)
}

func TestUpdateVisitValidatesBeforeWriting(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 4}))
	orig, err := db.Visit(1)
	require.NoError(t, err)

	err = db.UpdateVisit(1, types.VisitPatch{Location: types.Of[types.LocationID](2), User: types.Of[types.UserID](42), Mark: types.Of[uint8](0)})
	assert.ErrorIs(t, err, ErrInvalid)

	err = db.UpdateVisit(1, types.VisitPatch{Location: types.Of[types.LocationID](42)})
	assert.ErrorIs(t, err, ErrInvalid)

	v, err := db.Visit(1)
	require.NoError(t, err)
	assert.Equal(t, orig, v)
	requireIndexesConsistent(t, db)

	assert.ErrorIs(t, db.UpdateVisit(9, types.VisitPatch{}), ErrNotFound)
}

func TestUpdateVisitMissingBucketIsInternal(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 4}))
	delete(db.visitsByLocation, 1)

	err := db.UpdateVisit(1, types.VisitPatch{Location: types.Of[types.LocationID](2), Mark: types.Of[uint8](1)})
	require.ErrorIs(t, err, ErrInternal)

	v, err := db.Visit(1)
	require.NoError(t, err)
	assert.Equal(t, types.LocationID(1), v.Location)
	assert.Equal(t, uint8(4), v.Mark)
}

func TestTimestampCollisionKeepsLatest(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateVisit(types.Visit{ID: 1, User: 1, Location: 1, VisitedAt: 100, Mark: 1}))
	require.NoError(t, db.CreateVisit(types.Visit{ID: 2, User: 1, Location: 1, VisitedAt: 100, Mark: 5}))

	got, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint8(5), got[0].Mark)

	// Both stay individually fetchable.
	_, err = db.Visit(1)
	require.NoError(t, err)

	collisions, err := db.CheckIndexes()
	require.NoError(t, err)
	assert.Equal(t, 2, collisions)

	// Moving the shadowed visit must not evict the one that owns the slot.
	require.NoError(t, db.UpdateVisit(1, types.VisitPatch{VisitedAt: types.Of[types.Timestamp](300)}))
	got, err = db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	requireIndexesConsistent(t, db)
}

func TestLoadToleratesAnyOrder(t *testing.T) {
	db := NewDB(testNow)

	res := db.LoadVisits([]types.Visit{
		{ID: 1, User: 1, Location: 1, VisitedAt: 10, Mark: 5},
		{ID: 2, User: 1, Location: 1, VisitedAt: 20, Mark: 3},
		{ID: 2, User: 1, Location: 1, VisitedAt: 30, Mark: 3},
	})
	assert.Equal(t, LoadResult{Loaded: 2, Skipped: 1}, res)

	res = db.LoadLocations([]types.Location{{ID: 1, Place: "Парк", Country: "Россия", Distance: 3}})
	assert.Equal(t, LoadResult{Loaded: 1}, res)
	res = db.LoadUsers([]types.User{{ID: 1, Gender: types.Female, BirthDate: yearsBefore(33)}})
	assert.Equal(t, LoadResult{Loaded: 1}, res)

	got, err := db.UserVisits(1, types.VisitsFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	avg, err := db.LocationAverage(1, types.AverageFilter{Gender: types.Of(types.Female)})
	require.NoError(t, err)
	assert.Equal(t, "4.00000", avg.Format())

	assert.Equal(t, Stats{Users: 1, Locations: 1, Visits: 2, UserBuckets: 1, LocationBuckets: 1, UserIndexed: 2, LocationIndexed: 2}, db.Stats())
	requireIndexesConsistent(t, db)
}
