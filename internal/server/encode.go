package server

import (
	"github.com/mailru/easyjson/jwriter"

	"github.com/sanonone/travelsdb/pkg/core/types"
)

// The encoders below write fields in declaration order, which is the order
// clients expect.

func encodeUser(w *jwriter.Writer, u types.User) {
	w.RawString(`{"id":`)
	w.Uint32(uint32(u.ID))
	w.RawString(`,"email":`)
	w.String(u.Email)
	w.RawString(`,"first_name":`)
	w.String(u.FirstName)
	w.RawString(`,"last_name":`)
	w.String(u.LastName)
	w.RawString(`,"gender":`)
	w.String(u.Gender.String())
	w.RawString(`,"birth_date":`)
	w.Int64(u.BirthDate)
	w.RawByte('}')
}

func encodeLocation(w *jwriter.Writer, l types.Location) {
	w.RawString(`{"id":`)
	w.Uint32(uint32(l.ID))
	w.RawString(`,"place":`)
	w.String(l.Place)
	w.RawString(`,"country":`)
	w.String(l.Country)
	w.RawString(`,"city":`)
	w.String(l.City)
	w.RawString(`,"distance":`)
	w.Uint32(l.Distance)
	w.RawByte('}')
}

func encodeVisit(w *jwriter.Writer, v types.Visit) {
	w.RawString(`{"id":`)
	w.Uint32(uint32(v.ID))
	w.RawString(`,"location":`)
	w.Uint32(uint32(v.Location))
	w.RawString(`,"user":`)
	w.Uint32(uint32(v.User))
	w.RawString(`,"visited_at":`)
	w.Int64(v.VisitedAt)
	w.RawString(`,"mark":`)
	w.Uint8(v.Mark)
	w.RawByte('}')
}

func encodeVisitList(w *jwriter.Writer, list []types.VisitEntry) {
	w.RawString(`{"visits":[`)
	for i, e := range list {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"mark":`)
		w.Uint8(e.Mark)
		w.RawString(`,"visited_at":`)
		w.Int64(e.VisitedAt)
		w.RawString(`,"place":`)
		w.String(e.Place)
		w.RawByte('}')
	}
	w.RawString(`]}`)
}

// encodeAverage renders the rating with exactly five decimals, or a bare 0.
func encodeAverage(w *jwriter.Writer, avg types.AverageRating) {
	w.RawString(`{"avg":`)
	w.RawString(avg.Format())
	w.RawByte('}')
}

func encodeEmpty(w *jwriter.Writer) {
	w.RawString(`{}`)
}

func encodeError(w *jwriter.Writer, kind string) {
	w.RawString(`{"error":`)
	w.String(kind)
	w.RawByte('}')
}
