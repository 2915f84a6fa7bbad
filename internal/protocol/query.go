package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

// Query parameter names.
const (
	paramFromDate   = "fromDate"
	paramToDate     = "toDate"
	paramCountry    = "country"
	paramToDistance = "toDistance"
	paramFromAge    = "fromAge"
	paramToAge      = "toAge"
	paramGender     = "gender"
)

// eachParam walks the name=value pairs of a raw query. A pair without '='
// is rejected. An empty query has no pairs.
func eachParam(rawQuery string, fn func(name, value string) error) error {
	if rawQuery == "" {
		return nil
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("query pair %q has no value: %w", pair, core.ErrBadRequest)
		}
		if err := fn(name, value); err != nil {
			return err
		}
	}
	return nil
}

func badParam(name, value string) error {
	return fmt.Errorf("query parameter %s=%q: %w", name, value, core.ErrBadRequest)
}

func parseTimestamp(name, value string) (types.Field[types.Timestamp], error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return types.Field[types.Timestamp]{}, badParam(name, value)
	}
	return types.Of(n), nil
}

// ParseVisitsFilter parses fromDate, toDate, country and toDistance.
// Any other parameter name is a bad request.
func ParseVisitsFilter(rawQuery string) (types.VisitsFilter, error) {
	var f types.VisitsFilter
	err := eachParam(rawQuery, func(name, value string) error {
		var err error
		switch name {
		case paramFromDate:
			f.FromDate, err = parseTimestamp(name, value)
		case paramToDate:
			f.ToDate, err = parseTimestamp(name, value)
		case paramCountry:
			// Form encoding: '+' is a space.
			country, uerr := url.QueryUnescape(value)
			if uerr != nil {
				return badParam(name, value)
			}
			f.Country = types.Of(country)
		case paramToDistance:
			d, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil {
				return badParam(name, value)
			}
			f.ToDistance = types.Of(uint32(d))
		default:
			return badParam(name, value)
		}
		return err
	})
	return f, err
}

// ParseAverageFilter parses fromDate, toDate, fromAge, toAge and gender.
// Any other parameter name is a bad request.
func ParseAverageFilter(rawQuery string) (types.AverageFilter, error) {
	var f types.AverageFilter
	err := eachParam(rawQuery, func(name, value string) error {
		var err error
		switch name {
		case paramFromDate:
			f.FromDate, err = parseTimestamp(name, value)
		case paramToDate:
			f.ToDate, err = parseTimestamp(name, value)
		case paramFromAge:
			f.FromAge, err = parseTimestamp(name, value)
		case paramToAge:
			f.ToAge, err = parseTimestamp(name, value)
		case paramGender:
			g, gerr := types.ParseGender(value)
			if gerr != nil {
				return badParam(name, value)
			}
			f.Gender = types.Of(g)
		default:
			return badParam(name, value)
		}
		return err
	})
	return f, err
}

// EncodeVisitsFilter renders f as a raw query accepted by ParseVisitsFilter.
func EncodeVisitsFilter(f types.VisitsFilter) string {
	var b queryBuilder
	b.timestamp(paramFromDate, f.FromDate)
	b.timestamp(paramToDate, f.ToDate)
	if c, ok := f.Country.Get(); ok {
		b.add(paramCountry, url.QueryEscape(c))
	}
	if d, ok := f.ToDistance.Get(); ok {
		b.add(paramToDistance, strconv.FormatUint(uint64(d), 10))
	}
	return b.String()
}

// EncodeAverageFilter renders f as a raw query accepted by ParseAverageFilter.
func EncodeAverageFilter(f types.AverageFilter) string {
	var b queryBuilder
	b.timestamp(paramFromDate, f.FromDate)
	b.timestamp(paramToDate, f.ToDate)
	b.timestamp(paramFromAge, f.FromAge)
	b.timestamp(paramToAge, f.ToAge)
	if g, ok := f.Gender.Get(); ok {
		b.add(paramGender, g.String())
	}
	return b.String()
}

type queryBuilder struct {
	strings.Builder
}

func (b *queryBuilder) add(name, value string) {
	if b.Len() > 0 {
		b.WriteByte('&')
	}
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
}

func (b *queryBuilder) timestamp(name string, f types.Field[types.Timestamp]) {
	if v, ok := f.Get(); ok {
		b.add(name, strconv.FormatInt(v, 10))
	}
}
