package service

import (
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   uint64
	Role model.Role
}

// Actions is the set of operations a caller may perform on one reservation.
type Actions uint16

const (
	CanView Actions = 1 << iota
	CanUpdate
	CanCancel
	CanDelete          // unconditional delete
	CanDeleteCancelled // delete only once cancelled
	CanCheckIn
	CanCheckOut
	CanOverrideStatus // set any status through the generic update
)

const (
	staffActions = CanView | CanUpdate | CanCancel | CanDelete | CanCheckIn | CanCheckOut | CanOverrideStatus
	ownerActions = CanView | CanUpdate | CanCancel | CanDeleteCancelled
)

// Has reports whether every action in x is allowed.
func (a Actions) Has(x Actions) bool { return a&x == x }

// Policy returns what caller may do with res.  Staff may do everything; a
// customer owns the reservations booked for them and a travel company owns
// the company bookings it made.  Everybody else gets nothing.
func Policy(c Caller, res *model.Reservation) Actions {
	switch {
	case c.Role.IsStaff():
		return staffActions
	case c.Role == model.RoleCustomer && res.CustomerID == c.ID:
		return ownerActions
	// Same bound as ListScope, so an id never exposes another agency's guests.
	case c.Role == model.RoleTravelCompany && res.IsCompanyBooking && res.CompanyID != nil && *res.CompanyID == c.ID:
		return ownerActions
	}
	return 0
}

// ListScope returns the reservation filter that bounds what caller may
// list.  Staff see everything.
func ListScope(c Caller) (repository.ReservationFilter, error) {
	id := c.ID
	switch {
	case c.Role.IsStaff():
		return repository.ReservationFilter{}, nil
	case c.Role == model.RoleCustomer:
		return repository.ReservationFilter{CustomerID: &id}, nil
	case c.Role == model.RoleTravelCompany:
		return repository.ReservationFilter{CompanyID: &id}, nil
	}
	return repository.ReservationFilter{}, fail(ErrForbidden, "Role %q may not list reservations", c.Role)
}
