package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

func TestParseFetch(t *testing.T) {
	testCases := []struct {
		name     string
		entity   string
		id       string
		expected FetchEntity
		kind     core.Kind
	}{
		{name: "user", entity: "users", id: "1", expected: FetchEntity{Entity: types.EntityUser, ID: 1}},
		{name: "location", entity: "locations", id: "4294967295", expected: FetchEntity{Entity: types.EntityLocation, ID: 4294967295}},
		{name: "visit", entity: "visits", id: "0", expected: FetchEntity{Entity: types.EntityVisit, ID: 0}},
		{name: "id out of range", entity: "users", id: "4294967296", kind: core.KindNotFound},
		{name: "negative id", entity: "users", id: "-1", kind: core.KindNotFound},
		{name: "non numeric id", entity: "users", id: "bad", kind: core.KindNotFound},
		{name: "unknown collection", entity: "trips", id: "1", kind: core.KindBadRequest},
		{name: "bad id wins over bad collection", entity: "trips", id: "x", kind: core.KindNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFetch(tc.entity, tc.id)
			assert.Equal(t, tc.kind, core.KindOf(err))
			if tc.kind == core.KindNone {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestParseVisitsFilter(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected types.VisitsFilter
		hasError bool
	}{
		{name: "empty", query: ""},
		{name: "dates", query: "fromDate=-10&toDate=100", expected: types.VisitsFilter{FromDate: types.Of[types.Timestamp](-10), ToDate: types.Of[types.Timestamp](100)}},
		{name: "country percent encoded", query: "country=%D0%A0%D0%BE%D1%81%D1%81%D0%B8%D1%8F", expected: types.VisitsFilter{Country: types.Of("Россия")}},
		{name: "country plus is space", query: "country=United+States", expected: types.VisitsFilter{Country: types.Of("United States")}},
		{name: "distance", query: "toDistance=42", expected: types.VisitsFilter{ToDistance: types.Of[uint32](42)}},
		{name: "last value wins", query: "toDistance=1&toDistance=2", expected: types.VisitsFilter{ToDistance: types.Of[uint32](2)}},
		{name: "unknown name", query: "fromAge=10", hasError: true},
		{name: "missing value", query: "fromDate", hasError: true},
		{name: "empty value", query: "fromDate=", hasError: true},
		{name: "float date", query: "toDate=1.5", hasError: true},
		{name: "negative distance", query: "toDistance=-1", hasError: true},
		{name: "bad escape", query: "country=%zz", hasError: true},
		{name: "trailing ampersand", query: "fromDate=1&", hasError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVisitsFilter(tc.query)
			if tc.hasError {
				assert.ErrorIs(t, err, core.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseAverageFilter(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected types.AverageFilter
		hasError bool
	}{
		{name: "empty", query: ""},
		{name: "all", query: "fromDate=1&toDate=2&fromAge=18&toAge=40&gender=f", expected: types.AverageFilter{
			FromDate: types.Of[types.Timestamp](1),
			ToDate:   types.Of[types.Timestamp](2),
			FromAge:  types.Of[types.Timestamp](18),
			ToAge:    types.Of[types.Timestamp](40),
			Gender:   types.Of(types.Female),
		}},
		{name: "bad gender", query: "gender=x", hasError: true},
		{name: "upper case gender", query: "gender=M", hasError: true},
		{name: "country not allowed", query: "country=Russia", hasError: true},
		{name: "age not a number", query: "fromAge=old", hasError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAverageFilter(tc.query)
			if tc.hasError {
				assert.ErrorIs(t, err, core.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEncodeFiltersRoundTrip(t *testing.T) {
	vf := types.VisitsFilter{FromDate: types.Of[types.Timestamp](-5), Country: types.Of("Новая Зеландия & Ко"), ToDistance: types.Of[uint32](9)}
	raw := EncodeVisitsFilter(vf)
	back, err := ParseVisitsFilter(raw)
	require.NoError(t, err)
	assert.Equal(t, vf, back)

	af := types.AverageFilter{ToDate: types.Of[types.Timestamp](100), ToAge: types.Of[types.Timestamp](30), Gender: types.Of(types.Male)}
	assert.Equal(t, "toDate=100&toAge=30&gender=m", EncodeAverageFilter(af))

	assert.Empty(t, EncodeVisitsFilter(types.VisitsFilter{}))
}

func TestParseListAndAverage(t *testing.T) {
	lv, err := ParseListVisits("7", "toDistance=3")
	require.NoError(t, err)
	assert.Equal(t, ListVisits{User: 7, Filter: types.VisitsFilter{ToDistance: types.Of[uint32](3)}}, lv)

	_, err = ParseListVisits("x", "toDistance=3")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = ParseListVisits("7", "bogus=1")
	assert.ErrorIs(t, err, core.ErrBadRequest)

	avg, err := ParseAverage("9", "")
	require.NoError(t, err)
	assert.Equal(t, AverageLocationRating{Location: 9}, avg)
	assert.Equal(t, "location_avg", avg.Op())
}
