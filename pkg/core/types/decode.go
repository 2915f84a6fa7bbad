package types

import (
	"errors"
	"fmt"
	"math"

	"github.com/buger/jsonparser"
)

// ErrMalformed is returned for payloads that are not valid records or patches.
var ErrMalformed = errors.New("malformed payload")

// fieldFunc receives one member of a JSON object.
type fieldFunc func(key string, value []byte, typ jsonparser.ValueType) error

// eachField walks the members of a JSON object. The parse helpers below
// accept a single JSON type each, so an explicit null on a known field is
// rejected: no field can be cleared. Unknown members are never inspected.
func eachField(data []byte, fn fieldFunc) error {
	err := jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		return fn(string(key), value, typ)
	})
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func parseInt(key string, value []byte, typ jsonparser.ValueType) (int64, error) {
	if typ != jsonparser.Number {
		return 0, fmt.Errorf("field %q must be a number: %w", key, ErrMalformed)
	}
	n, err := jsonparser.ParseInt(value)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, ErrMalformed)
	}
	return n, nil
}

func parseUint32(key string, value []byte, typ jsonparser.ValueType) (uint32, error) {
	n, err := parseInt(key, value, typ)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("field %q out of range: %w", key, ErrMalformed)
	}
	return uint32(n), nil
}

func parseMark(key string, value []byte, typ jsonparser.ValueType) (uint8, error) {
	n, err := parseInt(key, value, typ)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > MaxMark {
		return 0, fmt.Errorf("field %q must be within 0..%d: %w", key, MaxMark, ErrMalformed)
	}
	return uint8(n), nil
}

func parseString(key string, value []byte, typ jsonparser.ValueType) (string, error) {
	if typ != jsonparser.String {
		return "", fmt.Errorf("field %q must be a string: %w", key, ErrMalformed)
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", key, ErrMalformed)
	}
	return s, nil
}

func parseGender(key string, value []byte, typ jsonparser.ValueType) (Gender, error) {
	s, err := parseString(key, value, typ)
	if err != nil {
		return 0, err
	}
	return ParseGender(s)
}

// seen tracks which required members of a record were present.
type seen uint8

func (s *seen) mark(bit uint) { *s |= 1 << bit }

func (s seen) missing(names ...string) error {
	for i, name := range names {
		if s&(1<<uint(i)) == 0 {
			return fmt.Errorf("field %q is required: %w", name, ErrMalformed)
		}
	}
	return nil
}

var (
	userFields     = []string{"id", "email", "first_name", "last_name", "gender", "birth_date"}
	locationFields = []string{"id", "place", "country", "city", "distance"}
	visitFields    = []string{"id", "location", "user", "visited_at", "mark"}
)

// DecodeUser parses a complete User. Every field is required.
func DecodeUser(data []byte) (User, error) {
	var (
		u    User
		have seen
	)
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		var err error
		switch key {
		case "id":
			var id uint32
			id, err = parseUint32(key, value, typ)
			u.ID = UserID(id)
			have.mark(0)
		case "email":
			u.Email, err = parseString(key, value, typ)
			have.mark(1)
		case "first_name":
			u.FirstName, err = parseString(key, value, typ)
			have.mark(2)
		case "last_name":
			u.LastName, err = parseString(key, value, typ)
			have.mark(3)
		case "gender":
			u.Gender, err = parseGender(key, value, typ)
			have.mark(4)
		case "birth_date":
			u.BirthDate, err = parseInt(key, value, typ)
			have.mark(5)
		}
		return err
	})
	if err != nil {
		return User{}, err
	}
	if err := have.missing(userFields...); err != nil {
		return User{}, err
	}
	return u, nil
}

// DecodeLocation parses a complete Location. Every field is required.
func DecodeLocation(data []byte) (Location, error) {
	var (
		l    Location
		have seen
	)
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		var err error
		switch key {
		case "id":
			var id uint32
			id, err = parseUint32(key, value, typ)
			l.ID = LocationID(id)
			have.mark(0)
		case "place":
			l.Place, err = parseString(key, value, typ)
			have.mark(1)
		case "country":
			l.Country, err = parseString(key, value, typ)
			have.mark(2)
		case "city":
			l.City, err = parseString(key, value, typ)
			have.mark(3)
		case "distance":
			l.Distance, err = parseUint32(key, value, typ)
			have.mark(4)
		}
		return err
	})
	if err != nil {
		return Location{}, err
	}
	if err := have.missing(locationFields...); err != nil {
		return Location{}, err
	}
	return l, nil
}

// DecodeVisit parses a complete Visit. Every field is required.
func DecodeVisit(data []byte) (Visit, error) {
	var (
		v    Visit
		have seen
	)
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		var (
			err error
			n   uint32
		)
		switch key {
		case "id":
			n, err = parseUint32(key, value, typ)
			v.ID = VisitID(n)
			have.mark(0)
		case "location":
			n, err = parseUint32(key, value, typ)
			v.Location = LocationID(n)
			have.mark(1)
		case "user":
			n, err = parseUint32(key, value, typ)
			v.User = UserID(n)
			have.mark(2)
		case "visited_at":
			v.VisitedAt, err = parseInt(key, value, typ)
			have.mark(3)
		case "mark":
			v.Mark, err = parseMark(key, value, typ)
			have.mark(4)
		}
		return err
	})
	if err != nil {
		return Visit{}, err
	}
	if err := have.missing(visitFields...); err != nil {
		return Visit{}, err
	}
	return v, nil
}

// DecodeUserPatch parses a partial User. Unknown keys, including "id", are ignored.
func DecodeUserPatch(data []byte) (UserPatch, error) {
	var p UserPatch
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		switch key {
		case "email":
			s, err := parseString(key, value, typ)
			p.Email = Of(s)
			return err
		case "first_name":
			s, err := parseString(key, value, typ)
			p.FirstName = Of(s)
			return err
		case "last_name":
			s, err := parseString(key, value, typ)
			p.LastName = Of(s)
			return err
		case "gender":
			g, err := parseGender(key, value, typ)
			p.Gender = Of(g)
			return err
		case "birth_date":
			n, err := parseInt(key, value, typ)
			p.BirthDate = Of(n)
			return err
		}
		return nil
	})
	if err != nil {
		return UserPatch{}, err
	}
	return p, nil
}

// DecodeLocationPatch parses a partial Location.
func DecodeLocationPatch(data []byte) (LocationPatch, error) {
	var p LocationPatch
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		switch key {
		case "place":
			s, err := parseString(key, value, typ)
			p.Place = Of(s)
			return err
		case "country":
			s, err := parseString(key, value, typ)
			p.Country = Of(s)
			return err
		case "city":
			s, err := parseString(key, value, typ)
			p.City = Of(s)
			return err
		case "distance":
			n, err := parseUint32(key, value, typ)
			p.Distance = Of(n)
			return err
		}
		return nil
	})
	if err != nil {
		return LocationPatch{}, err
	}
	return p, nil
}

// DecodeVisitPatch parses a partial Visit.
func DecodeVisitPatch(data []byte) (VisitPatch, error) {
	var p VisitPatch
	err := eachField(data, func(key string, value []byte, typ jsonparser.ValueType) error {
		switch key {
		case "location":
			n, err := parseUint32(key, value, typ)
			p.Location = Of(LocationID(n))
			return err
		case "user":
			n, err := parseUint32(key, value, typ)
			p.User = Of(UserID(n))
			return err
		case "visited_at":
			n, err := parseInt(key, value, typ)
			p.VisitedAt = Of(n)
			return err
		case "mark":
			m, err := parseMark(key, value, typ)
			p.Mark = Of(m)
			return err
		}
		return nil
	})
	if err != nil {
		return VisitPatch{}, err
	}
	return p, nil
}
