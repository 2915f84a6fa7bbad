// Package types defines the records stored by travelsdb and the typed values
// that flow in and out of the query and mutation paths.
package types

import (
	"fmt"
	"strconv"
)

// Timestamp is a signed epoch-seconds value. Birth dates before 1970 are negative.
type Timestamp = int64

// UserID identifies a User.
type UserID uint32

// LocationID identifies a Location.
type LocationID uint32

// VisitID identifies a Visit.
type VisitID uint32

// Entity names one of the three record kinds.
type Entity uint8

const (
	EntityUser Entity = iota + 1
	EntityLocation
	EntityVisit
)

// String returns the collection name used in URLs and archive file names.
func (e Entity) String() string {
	switch e {
	case EntityUser:
		return "users"
	case EntityLocation:
		return "locations"
	case EntityVisit:
		return "visits"
	default:
		return "entity(" + strconv.Itoa(int(e)) + ")"
	}
}

// ParseEntity maps a collection name back to its Entity.
func ParseEntity(name string) (Entity, bool) {
	switch name {
	case "users":
		return EntityUser, true
	case "locations":
		return EntityLocation, true
	case "visits":
		return EntityVisit, true
	}
	return 0, false
}

// Gender is serialized as "m" or "f".
type Gender uint8

const (
	Male Gender = iota + 1
	Female
)

func (g Gender) String() string {
	switch g {
	case Male:
		return "m"
	case Female:
		return "f"
	default:
		return ""
	}
}

// ParseGender accepts exactly "m" or "f".
func ParseGender(s string) (Gender, error) {
	switch s {
	case "m":
		return Male, nil
	case "f":
		return Female, nil
	}
	return 0, fmt.Errorf("incorrect gender identifier %q: %w", s, ErrMalformed)
}

func (g Gender) MarshalText() ([]byte, error) {
	if g != Male && g != Female {
		return nil, fmt.Errorf("gender %d has no wire form", g)
	}
	return []byte(g.String()), nil
}

func (g *Gender) UnmarshalText(b []byte) error {
	parsed, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// User is a registered traveller.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    Gender    `json:"gender"`
	BirthDate Timestamp `json:"birth_date"`
}

// Location is a place that can be visited.
type Location struct {
	ID       LocationID `json:"id"`
	Place    string     `json:"place"`
	Country  string     `json:"country"`
	City     string     `json:"city"`
	Distance uint32     `json:"distance"`
}

// Visit links a User to a Location at a point in time with a 0..5 mark.
type Visit struct {
	ID        VisitID    `json:"id"`
	Location  LocationID `json:"location"`
	User      UserID     `json:"user"`
	VisitedAt Timestamp  `json:"visited_at"`
	Mark      uint8      `json:"mark"`
}

// MaxMark is the highest rating a visit can carry.
const MaxMark = 5
