// Package protocol turns the pieces of an HTTP request (entity segment, id
// segment, raw query, body) into typed requests for the engine.
//
// Every failure wraps one of the core error sentinels so the caller can map
// it to a status with core.KindOf.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

// Request is one decoded operation.
type Request interface {
	// Op names the operation for logs and metrics.
	Op() string
}

// FetchEntity reads a single record.
type FetchEntity struct {
	Entity types.Entity
	ID     uint32
}

// ListVisits lists a user's visits.
type ListVisits struct {
	User   types.UserID
	Filter types.VisitsFilter
}

// AverageLocationRating aggregates a location's marks.
type AverageLocationRating struct {
	Location types.LocationID
	Filter   types.AverageFilter
}

// CreateEntity inserts a complete record. Record holds a types.User,
// types.Location or types.Visit matching Entity.
type CreateEntity struct {
	Entity types.Entity
	Record any
}

// UpdateEntity applies a partial update. Patch holds a types.UserPatch,
// types.LocationPatch or types.VisitPatch matching Entity.
type UpdateEntity struct {
	Entity types.Entity
	ID     uint32
	Patch  any
}

func (FetchEntity) Op() string           { return "fetch" }
func (ListVisits) Op() string            { return "list_visits" }
func (AverageLocationRating) Op() string { return "location_avg" }
func (CreateEntity) Op() string          { return "create" }
func (UpdateEntity) Op() string          { return "update" }

// newSegment is the id segment that selects a create.
const newSegment = "new"

// ParseEntity resolves the collection segment of a path.
func ParseEntity(segment string) (types.Entity, error) {
	e, ok := types.ParseEntity(segment)
	if !ok {
		return 0, fmt.Errorf("unknown collection %q: %w", segment, core.ErrBadRequest)
	}
	return e, nil
}

// ParseID parses an id path segment. Anything that is not a u32 cannot name
// a record, so it is reported as not found.
func ParseID(segment string) (uint32, error) {
	id, err := strconv.ParseUint(segment, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", segment, core.ErrNotFound)
	}
	return uint32(id), nil
}

// ParseFetch builds a FetchEntity from GET /{entity}/{id}.
func ParseFetch(entitySeg, idSeg string) (FetchEntity, error) {
	id, err := ParseID(idSeg)
	if err != nil {
		return FetchEntity{}, err
	}
	e, err := ParseEntity(entitySeg)
	if err != nil {
		return FetchEntity{}, err
	}
	return FetchEntity{Entity: e, ID: id}, nil
}

// ParseListVisits builds a ListVisits from GET /users/{id}/visits.
func ParseListVisits(idSeg, rawQuery string) (ListVisits, error) {
	id, err := ParseID(idSeg)
	if err != nil {
		return ListVisits{}, err
	}
	f, err := ParseVisitsFilter(rawQuery)
	if err != nil {
		return ListVisits{}, err
	}
	return ListVisits{User: types.UserID(id), Filter: f}, nil
}

// ParseAverage builds an AverageLocationRating from GET /locations/{id}/avg.
func ParseAverage(idSeg, rawQuery string) (AverageLocationRating, error) {
	id, err := ParseID(idSeg)
	if err != nil {
		return AverageLocationRating{}, err
	}
	f, err := ParseAverageFilter(rawQuery)
	if err != nil {
		return AverageLocationRating{}, err
	}
	return AverageLocationRating{Location: types.LocationID(id), Filter: f}, nil
}

// ParsePost builds a CreateEntity from POST /{entity}/new or an UpdateEntity
// from POST /{entity}/{id}.
func ParsePost(entitySeg, idSeg string, body []byte) (Request, error) {
	if idSeg == newSegment {
		e, err := ParseEntity(entitySeg)
		if err != nil {
			return nil, err
		}
		rec, err := DecodeRecord(e, body)
		if err != nil {
			return nil, err
		}
		return CreateEntity{Entity: e, Record: rec}, nil
	}

	id, err := ParseID(idSeg)
	if err != nil {
		return nil, err
	}
	e, err := ParseEntity(entitySeg)
	if err != nil {
		return nil, err
	}
	patch, err := DecodePatch(e, body)
	if err != nil {
		return nil, err
	}
	return UpdateEntity{Entity: e, ID: id, Patch: patch}, nil
}
