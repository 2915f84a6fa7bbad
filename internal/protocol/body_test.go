package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

func TestParsePostCreate(t *testing.T) {
	req, err := ParsePost("visits", "new", []byte(`{"id": 10, "location": 2, "user": 3, "visited_at": 958656902, "mark": 4}`))
	require.NoError(t, err)
	assert.Equal(t, CreateEntity{
		Entity: types.EntityVisit,
		Record: types.Visit{ID: 10, Location: 2, User: 3, VisitedAt: 958656902, Mark: 4},
	}, req)
	assert.Equal(t, "create", req.Op())

	req, err = ParsePost("users", "new", []byte(`{"id": 1, "email": "a@b.c", "first_name": "Ян", "last_name": "Ли", "gender": "m", "birth_date": -712108800}`))
	require.NoError(t, err)
	assert.Equal(t, types.User{ID: 1, Email: "a@b.c", FirstName: "Ян", LastName: "Ли", Gender: types.Male, BirthDate: -712108800}, req.(CreateEntity).Record)

	req, err = ParsePost("locations", "new", []byte(`{"id": 3, "place": "Мост", "country": "Чехия", "city": "Прага", "distance": 12}`))
	require.NoError(t, err)
	assert.Equal(t, types.Location{ID: 3, Place: "Мост", Country: "Чехия", City: "Прага", Distance: 12}, req.(CreateEntity).Record)
}

func TestParsePostCreateRejects(t *testing.T) {
	testCases := []struct {
		name   string
		entity string
		body   string
	}{
		{name: "not json", entity: "users", body: `{`},
		{name: "empty body", entity: "users", body: ``},
		{name: "array", entity: "users", body: `[]`},
		{name: "missing field", entity: "users", body: `{"id": 1, "email": "a", "first_name": "b", "last_name": "c", "gender": "m"}`},
		{name: "null field", entity: "users", body: `{"id": 1, "email": null, "first_name": "b", "last_name": "c", "gender": "m", "birth_date": 0}`},
		{name: "bad gender", entity: "users", body: `{"id": 1, "email": "a", "first_name": "b", "last_name": "c", "gender": "x", "birth_date": 0}`},
		{name: "string distance", entity: "locations", body: `{"id": 1, "place": "a", "country": "b", "city": "c", "distance": "5"}`},
		{name: "mark too high", entity: "visits", body: `{"id": 1, "location": 1, "user": 1, "visited_at": 1, "mark": 6}`},
		{name: "negative mark", entity: "visits", body: `{"id": 1, "location": 1, "user": 1, "visited_at": 1, "mark": -1}`},
		{name: "fractional timestamp", entity: "visits", body: `{"id": 1, "location": 1, "user": 1, "visited_at": 1.5, "mark": 1}`},
		{name: "id overflow", entity: "visits", body: `{"id": 4294967296, "location": 1, "user": 1, "visited_at": 1, "mark": 1}`},
		{name: "unknown collection", entity: "trips", body: `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePost(tc.entity, "new", []byte(tc.body))
			assert.ErrorIs(t, err, core.ErrBadRequest)
			assert.Equal(t, core.KindBadRequest, core.KindOf(err))
		})
	}
}

func TestParsePostUpdate(t *testing.T) {
	req, err := ParsePost("visits", "5", []byte(`{"mark": 0, "id": 77, "comment": null}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateEntity{
		Entity: types.EntityVisit,
		ID:     5,
		Patch:  types.VisitPatch{Mark: types.Of[uint8](0)},
	}, req)
	assert.Equal(t, "update", req.Op())

	req, err = ParsePost("users", "1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, types.UserPatch{}, req.(UpdateEntity).Patch)

	req, err = ParsePost("locations", "2", []byte(`{"distance": 7, "city": "Рим"}`))
	require.NoError(t, err)
	assert.Equal(t, types.LocationPatch{Distance: types.Of[uint32](7), City: types.Of("Рим")}, req.(UpdateEntity).Patch)
}

func TestParsePostUpdateRejects(t *testing.T) {
	testCases := []struct {
		name   string
		entity string
		id     string
		body   string
		kind   core.Kind
	}{
		{name: "null field", entity: "users", id: "1", body: `{"first_name": null}`, kind: core.KindBadRequest},
		{name: "null visit ref", entity: "visits", id: "1", body: `{"location": null}`, kind: core.KindBadRequest},
		{name: "wrong type", entity: "locations", id: "1", body: `{"distance": true}`, kind: core.KindBadRequest},
		{name: "mark out of range", entity: "visits", id: "1", body: `{"mark": 9}`, kind: core.KindBadRequest},
		{name: "bad gender", entity: "users", id: "1", body: `{"gender": "female"}`, kind: core.KindBadRequest},
		{name: "not an object", entity: "users", id: "1", body: `"x"`, kind: core.KindBadRequest},
		{name: "bad id", entity: "users", id: "abc", body: `{}`, kind: core.KindNotFound},
		{name: "unknown collection", entity: "trips", id: "1", body: `{}`, kind: core.KindBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePost(tc.entity, tc.id, []byte(tc.body))
			require.Error(t, err)
			assert.Equal(t, tc.kind, core.KindOf(err))
		})
	}
}

func TestSchemaExposesRequiredFields(t *testing.T) {
	s := Schema(types.EntityVisit, false)
	require.NotNil(t, s)
	assert.ElementsMatch(t, []string{"id", "location", "user", "visited_at", "mark"}, s.Required)

	u := Schema(types.EntityUser, true)
	require.NotNil(t, u)
	assert.Empty(t, u.Required)
	assert.NotContains(t, u.Properties, "id")

	assert.Nil(t, Schema(types.Entity(0), false))
}
