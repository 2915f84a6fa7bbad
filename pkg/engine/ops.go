// This file implements the operational methods of the Engine, wrapping core
// queries and mutations with outcome metrics. Internal errors, which mean an
// index points at a record that is gone, are logged here once so callers only
// have to map them to a response.
package engine

import (
	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
	"github.com/sanonone/travelsdb/pkg/metrics"
)

// observe counts the outcome of op and logs internal faults.
func (e *Engine) observe(op string, err error) error {
	kind := core.KindOf(err)
	metrics.StoreOpsTotal.WithLabelValues(op, kind.String()).Inc()
	if kind == core.KindInternal {
		e.logger.Error("Store operation failed", "op", op, "error", err)
	}
	return err
}

// --- Fetch ---

// User returns the user with the given id.
func (e *Engine) User(id types.UserID) (types.User, error) {
	u, err := e.DB.User(id)
	return u, e.observe("get_user", err)
}

// Location returns the location with the given id.
func (e *Engine) Location(id types.LocationID) (types.Location, error) {
	l, err := e.DB.Location(id)
	return l, e.observe("get_location", err)
}

// Visit returns the visit with the given id.
func (e *Engine) Visit(id types.VisitID) (types.Visit, error) {
	v, err := e.DB.Visit(id)
	return v, e.observe("get_visit", err)
}

// --- Queries ---

// UserVisits lists the visits of user id in ascending visited_at order.
func (e *Engine) UserVisits(id types.UserID, f types.VisitsFilter) ([]types.VisitEntry, error) {
	list, err := e.DB.UserVisits(id, f)
	return list, e.observe("list_visits", err)
}

// LocationAverage computes the average mark of location id.
func (e *Engine) LocationAverage(id types.LocationID, f types.AverageFilter) (types.AverageRating, error) {
	avg, err := e.DB.LocationAverage(id, f)
	return avg, e.observe("location_avg", err)
}

// --- Mutations ---

// CreateUser inserts a new user.
func (e *Engine) CreateUser(u types.User) error {
	if err := e.observe("create_user", e.DB.CreateUser(u)); err != nil {
		return err
	}
	metrics.EntitiesTotal.WithLabelValues(types.EntityUser.String()).Inc()
	return nil
}

// CreateLocation inserts a new location.
func (e *Engine) CreateLocation(l types.Location) error {
	if err := e.observe("create_location", e.DB.CreateLocation(l)); err != nil {
		return err
	}
	metrics.EntitiesTotal.WithLabelValues(types.EntityLocation.String()).Inc()
	return nil
}

// CreateVisit inserts a new visit. Its user and location must exist.
func (e *Engine) CreateVisit(v types.Visit) error {
	if err := e.observe("create_visit", e.DB.CreateVisit(v)); err != nil {
		return err
	}
	metrics.EntitiesTotal.WithLabelValues(types.EntityVisit.String()).Inc()
	return nil
}

// UpdateUser applies p to user id.
func (e *Engine) UpdateUser(id types.UserID, p types.UserPatch) error {
	return e.observe("update_user", e.DB.UpdateUser(id, p))
}

// UpdateLocation applies p to location id.
func (e *Engine) UpdateLocation(id types.LocationID, p types.LocationPatch) error {
	return e.observe("update_location", e.DB.UpdateLocation(id, p))
}

// UpdateVisit applies p to visit id and moves its index entries.
func (e *Engine) UpdateVisit(id types.VisitID, p types.VisitPatch) error {
	return e.observe("update_visit", e.DB.UpdateVisit(id, p))
}
