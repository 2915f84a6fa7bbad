package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Field is an optional value. The zero Field is unset.
//
// In update payloads an unset Field leaves the stored value untouched and a
// set Field overwrites it. There is no way to clear a value.
type Field[T any] struct {
	value T
	set   bool
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field carries a value.
func (f Field[T]) IsSet() bool {
	return f.set
}

// Or returns the value, or def when unset.
func (f Field[T]) Or(def T) T {
	if f.set {
		return f.value
	}
	return def
}

// UserPatch is a partial update of a User.
type UserPatch struct {
	Email     Field[string]
	FirstName Field[string]
	LastName  Field[string]
	Gender    Field[Gender]
	BirthDate Field[Timestamp]
}

// LocationPatch is a partial update of a Location.
type LocationPatch struct {
	Place    Field[string]
	Country  Field[string]
	City     Field[string]
	Distance Field[uint32]
}

// VisitPatch is a partial update of a Visit.
type VisitPatch struct {
	Location  Field[LocationID]
	User      Field[UserID]
	VisitedAt Field[Timestamp]
	Mark      Field[uint8]
}

// setFields collects set fields into an ordered JSON object.
type setFields []fieldPair

type fieldPair struct {
	key   string
	value any
}

func addField[T any](fs setFields, key string, f Field[T]) setFields {
	if v, ok := f.Get(); ok {
		return append(fs, fieldPair{key: key, value: v})
	}
	return fs
}

func (fs setFields) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, p := range fs {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, p.key)
		buf = append(buf, ':')
		raw, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, raw...)
	}
	return append(buf, '}'), nil
}

// MarshalJSON emits only the set fields.
func (p UserPatch) MarshalJSON() ([]byte, error) {
	var fs setFields
	fs = addField(fs, "email", p.Email)
	fs = addField(fs, "first_name", p.FirstName)
	fs = addField(fs, "last_name", p.LastName)
	fs = addField(fs, "gender", p.Gender)
	fs = addField(fs, "birth_date", p.BirthDate)
	return fs.MarshalJSON()
}

// MarshalJSON emits only the set fields.
func (p LocationPatch) MarshalJSON() ([]byte, error) {
	var fs setFields
	fs = addField(fs, "place", p.Place)
	fs = addField(fs, "country", p.Country)
	fs = addField(fs, "city", p.City)
	fs = addField(fs, "distance", p.Distance)
	return fs.MarshalJSON()
}

// MarshalJSON emits only the set fields.
func (p VisitPatch) MarshalJSON() ([]byte, error) {
	var fs setFields
	fs = addField(fs, "location", p.Location)
	fs = addField(fs, "user", p.User)
	fs = addField(fs, "visited_at", p.VisitedAt)
	fs = addField(fs, "mark", p.Mark)
	return fs.MarshalJSON()
}

// VisitsFilter narrows a user's visit listing.
// Date bounds are exclusive.
type VisitsFilter struct {
	FromDate   Field[Timestamp]
	ToDate     Field[Timestamp]
	Country    Field[string]
	ToDistance Field[uint32]
}

// AverageFilter narrows a location's average rating.
// Date and age bounds are exclusive.
type AverageFilter struct {
	FromDate Field[Timestamp]
	ToDate   Field[Timestamp]
	FromAge  Field[Timestamp]
	ToAge    Field[Timestamp]
	Gender   Field[Gender]
}

// VisitEntry is one row of a user's visit listing.
type VisitEntry struct {
	Mark      uint8     `json:"mark"`
	VisitedAt Timestamp `json:"visited_at"`
	Place     string    `json:"place"`
}

// AverageRating accumulates marks for a location.
type AverageRating struct {
	Sum   uint64
	Count uint64
}

// Add folds one mark into the rating.
func (a *AverageRating) Add(mark uint8) {
	a.Sum += uint64(mark)
	a.Count++
}

// Value is the mean mark rounded to five decimal places, or 0 with no marks.
func (a AverageRating) Value() float64 {
	if a.Count == 0 {
		return 0
	}
	avg := float64(a.Sum) / float64(a.Count)
	return math.Round(avg*100000) / 100000
}

// Format renders the average with exactly five decimals, or "0" with no marks.
// Fixed-point formatting keeps binary float noise out of the output.
func (a AverageRating) Format() string {
	if a.Count == 0 {
		return "0"
	}
	return strconv.FormatFloat(a.Value(), 'f', 5, 64)
}
