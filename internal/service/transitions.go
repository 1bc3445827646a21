package service

import "github.com/iliyamo/hotel-front-desk/internal/model"

// Action names a lifecycle operation on an existing reservation.
type Action string

const (
	ActionCheckIn    Action = "checkin"
	ActionCheckOut   Action = "checkout"
	ActionCancel     Action = "cancel"
	ActionMarkNoShow Action = "no-show"
	ActionSweep      Action = "sweep"
)

// transitions maps action -> from -> to.  A missing entry means the action
// is not allowed from that status.
var transitions = map[Action]map[model.ReservationStatus]model.ReservationStatus{
	ActionCheckIn:    {model.StatusConfirmed: model.StatusCheckedIn},
	ActionCheckOut:   {model.StatusCheckedIn: model.StatusCheckedOut},
	ActionCancel:     fromAny(model.StatusCancelled),
	ActionMarkNoShow: fromAny(model.StatusNoShow),
	ActionSweep:      {model.StatusNoShow: model.StatusCancelled},
}

func fromAny(to model.ReservationStatus) map[model.ReservationStatus]model.ReservationStatus {
	m := make(map[model.ReservationStatus]model.ReservationStatus, len(model.AllReservationStatuses))
	for _, st := range model.AllReservationStatuses {
		m[st] = to
	}
	return m
}

// Next returns the status an action leads to from the given status.
func Next(a Action, from model.ReservationStatus) (model.ReservationStatus, bool) {
	to, ok := transitions[a][from]
	return to, ok
}

// roomStatusAfter is the room status implied by a reservation entering the
// given status.  Pending and no-show leave the room untouched.
func roomStatusAfter(s model.ReservationStatus) (model.RoomStatus, bool) {
	switch s {
	case model.StatusConfirmed:
		return model.RoomReserved, true
	case model.StatusCheckedIn:
		return model.RoomOccupied, true
	case model.StatusCheckedOut, model.StatusCancelled:
		return model.RoomAvailable, true
	}
	return "", false
}
