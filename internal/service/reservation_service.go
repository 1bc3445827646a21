// Package service holds the reservation lifecycle engine: the rules that
// move a reservation between statuses, keep room availability in step and
// raise no-show bills.  Storage, locking and event delivery are injected.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-front-desk/internal/lock"
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/observability"
	"github.com/iliyamo/hotel-front-desk/internal/queue"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
)

// ReservationStore persists reservations.  *repository.ReservationRepo
// satisfies it.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, error)
	FindConflict(ctx context.Context, roomID uint64, checkIn, checkOut time.Time, excludeID uint64) (*model.Reservation, error)
	Update(ctx context.Context, res *model.Reservation, expected model.ReservationStatus) error
	TransitionStatus(ctx context.Context, id uint64, from, to model.ReservationStatus) error
	Delete(ctx context.Context, id uint64) error
	ListNoShowCandidates(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

// RoomDirectory is the part of the room store the engine needs.
type RoomDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus) error
}

// BillingLedger is the part of the billing store the engine needs.
type BillingLedger interface {
	FindByReservation(ctx context.Context, reservationID uint64) (*model.Billing, error)
	Create(ctx context.Context, b *model.Billing) error
}

// EventPublisher delivers reservation events.  Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationService implements the reservation lifecycle.
type ReservationService struct {
	store   ReservationStore
	rooms   RoomDirectory
	bills   BillingLedger
	locker  lock.Locker
	events  EventPublisher
	now     func() time.Time
	timeout time.Duration
	lockTTL time.Duration
	log     zerolog.Logger

	// roomsChanged runs after every room status write, e.g. to drop the
	// public room listing cache.
	roomsChanged func(context.Context) error
}

// Option configures a ReservationService.
type Option func(*ReservationService)

// WithEvents publishes an event after every successful change.
func WithEvents(p EventPublisher) Option { return func(s *ReservationService) { s.events = p } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *ReservationService) { s.now = now } }

// WithTimeout bounds the storage work of each operation.
func WithTimeout(d time.Duration) Option { return func(s *ReservationService) { s.timeout = d } }

// WithRoomsChanged registers a hook run after the engine changes a room's
// status.  Hook errors are logged and never fail the operation.
func WithRoomsChanged(fn func(context.Context) error) Option {
	return func(s *ReservationService) { s.roomsChanged = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *ReservationService) { s.log = l.With().Str("component", "reservations").Logger() }
}

// NewReservationService wires the engine.  A nil locker falls back to an
// in-process lock.
func NewReservationService(store ReservationStore, rooms RoomDirectory, bills BillingLedger, locker lock.Locker, opts ...Option) *ReservationService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	s := &ReservationService{
		store:   store,
		rooms:   rooms,
		bills:   bills,
		locker:  locker,
		now:     time.Now,
		lockTTL: 10 * time.Second,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *ReservationService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

const publishTimeout = 3 * time.Second

func roomLockKey(roomID uint64) string { return fmt.Sprintf("room:%d", roomID) }

// ListOptions narrows a listing inside the caller's scope.
type ListOptions struct {
	Status *model.ReservationStatus
	RoomID *uint64
}

// List returns the reservations caller may see, newest first.
func (s *ReservationService) List(ctx context.Context, c Caller, opts ListOptions) ([]model.Reservation, error) {
	f, err := ListScope(c)
	if err != nil {
		return nil, err
	}
	f.Status = opts.Status
	f.RoomID = opts.RoomID

	ctx, cancel := s.bound(ctx)
	defer cancel()
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// Get returns one reservation if caller may view it.
func (s *ReservationService) Get(ctx context.Context, c Caller, id uint64) (*model.Reservation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Policy(c, res).Has(CanView) {
		return nil, fail(ErrForbidden, "Not authorized to access this reservation")
	}
	return res, nil
}

func (s *ReservationService) load(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fail(ErrNotFound, "Reservation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation %d: %w", id, err)
	}
	return res, nil
}

func (s *ReservationService) room(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fail(ErrNotFound, "Room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load room %d: %w", id, err)
	}
	return rm, nil
}

// CreateInput is a booking request.  Amounts are always computed here.
type CreateInput struct {
	RoomID          uint64
	CustomerID      *uint64 // staff and travel companies may book for a customer
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	Status          model.ReservationStatus // pending or confirmed; empty means confirmed
	PaymentMethod   model.PaymentMethod     // empty means pending
	Card            *model.CardDetails
	SpecialRequests string
}

var last4Re = regexp.MustCompile(`^[0-9]{4}$`)

func validateStay(checkIn, checkOut time.Time, guests int) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return fail(ErrValidation, "Check-in and check-out dates are required")
	}
	if !checkOut.After(checkIn) {
		return fail(ErrValidation, "Check-out date must be after check-in date")
	}
	if guests < 1 {
		return fail(ErrValidation, "At least one guest is required")
	}
	return nil
}

func validatePayment(method model.PaymentMethod, card *model.CardDetails) error {
	if _, ok := model.ParsePaymentMethod(string(method)); !ok {
		return fail(ErrValidation, "Invalid payment method %q", method)
	}
	if method != model.PaymentCreditCard {
		if card != nil {
			return fail(ErrValidation, "Card details are only accepted for credit card payments")
		}
		return nil
	}
	if card == nil {
		return fail(ErrValidation, "Card details are required for credit card payments")
	}
	if !last4Re.MatchString(card.Last4) {
		return fail(ErrValidation, "Card last4 must be exactly four digits")
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		return fail(ErrValidation, "Card expiry month must be between 1 and 12")
	}
	if card.ExpYear < 2000 || card.ExpYear > 9999 {
		return fail(ErrValidation, "Card expiry year is invalid")
	}
	return nil
}

// Create books a room.  The conflict check and the insert run under the
// room lock so two concurrent bookings cannot both pass the check.
func (s *ReservationService) Create(ctx context.Context, c Caller, in CreateInput) (*model.Reservation, error) {
	res, err := s.create(ctx, c, in)
	s.observe("create", err)
	return res, err
}

func (s *ReservationService) create(ctx context.Context, c Caller, in CreateInput) (*model.Reservation, error) {
	if in.RoomID == 0 {
		return nil, fail(ErrValidation, "Room is required")
	}
	if err := validateStay(in.CheckIn, in.CheckOut, in.Guests); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.StatusConfirmed
	}
	if in.Status != model.StatusConfirmed && in.Status != model.StatusPending {
		return nil, fail(ErrValidation, "A new reservation must be pending or confirmed")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = model.PaymentPending
	}
	if err := validatePayment(in.PaymentMethod, in.Card); err != nil {
		return nil, err
	}

	res := &model.Reservation{
		RoomID:          in.RoomID,
		CheckInDate:     in.CheckIn.UTC(),
		CheckOutDate:    in.CheckOut.UTC(),
		Guests:          in.Guests,
		Status:          in.Status,
		PaymentMethod:   in.PaymentMethod,
		Card:            in.Card,
		SpecialRequests: in.SpecialRequests,
	}
	switch {
	case c.Role == model.RoleCustomer:
		if in.CustomerID != nil && *in.CustomerID != c.ID {
			return nil, fail(ErrForbidden, "Customers can only book for themselves")
		}
		res.CustomerID = c.ID
	case c.Role == model.RoleTravelCompany:
		cid := c.ID
		res.IsCompanyBooking = true
		res.CompanyID = &cid
		res.CustomerID = c.ID
		if in.CustomerID != nil {
			res.CustomerID = *in.CustomerID
		}
	case c.Role.IsStaff():
		res.CustomerID = c.ID
		if in.CustomerID != nil {
			res.CustomerID = *in.CustomerID
		}
	default:
		return nil, fail(ErrForbidden, "Role %q may not create reservations", c.Role)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, roomLockKey(in.RoomID), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock room %d: %w", in.RoomID, err)
	}
	defer unlock()

	rm, err := s.room(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if res.Guests > rm.Capacity {
		return nil, fail(ErrValidation, "Room %s holds at most %d guests", rm.Number, rm.Capacity)
	}
	if err := s.checkConflict(ctx, in.RoomID, res.CheckInDate, res.CheckOutDate, 0); err != nil {
		return nil, err
	}

	q := PriceStay(rm.Price, res.CheckInDate, res.CheckOutDate, res.IsCompanyBooking, res.PaymentMethod)
	res.TotalAmount, res.DepositAmount, res.Discount = q.Total, q.Deposit, q.Discount

	if err := s.store.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	if err := s.applyRoomStatus(ctx, res, res.Status); err != nil {
		return nil, err
	}
	s.publish(ctx, c, queue.EventCreated, res, "")
	return res, nil
}

func (s *ReservationService) checkConflict(ctx context.Context, roomID uint64, checkIn, checkOut time.Time, excludeID uint64) error {
	other, err := s.store.FindConflict(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if other != nil {
		return fail(ErrConflict, "Room is already booked for the selected dates")
	}
	return nil
}

// UpdateInput is a partial edit.  Nil fields are left untouched.
type UpdateInput struct {
	RoomID          *uint64
	CheckIn         *time.Time
	CheckOut        *time.Time
	Guests          *int
	Status          *model.ReservationStatus
	PaymentMethod   *model.PaymentMethod
	Card            *model.CardDetails
	SpecialRequests *string
}

// Update applies a generic edit.  Owners may edit stay details and cancel;
// only staff may set other statuses.  Setting no-show raises the no-show
// bill if the reservation has none.
func (s *ReservationService) Update(ctx context.Context, c Caller, id uint64, in UpdateInput) (*model.Reservation, error) {
	res, err := s.update(ctx, c, id, in)
	s.observe("update", err)
	return res, err
}

func (s *ReservationService) update(ctx context.Context, c Caller, id uint64, in UpdateInput) (*model.Reservation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := Policy(c, res)
	if !allowed.Has(CanUpdate) {
		return nil, fail(ErrForbidden, "Not authorized to update this reservation")
	}

	prev := *res
	if in.Status != nil && *in.Status != res.Status {
		if _, ok := model.ParseReservationStatus(string(*in.Status)); !ok {
			return nil, fail(ErrValidation, "Invalid status %q", *in.Status)
		}
		if !allowed.Has(CanOverrideStatus) && *in.Status != model.StatusCancelled {
			return nil, fail(ErrForbidden, "Only staff can set status %q", *in.Status)
		}
		res.Status = *in.Status
	}
	if in.RoomID != nil {
		res.RoomID = *in.RoomID
	}
	if in.CheckIn != nil {
		res.CheckInDate = in.CheckIn.UTC()
	}
	if in.CheckOut != nil {
		res.CheckOutDate = in.CheckOut.UTC()
	}
	if in.Guests != nil {
		res.Guests = *in.Guests
	}
	if in.PaymentMethod != nil {
		res.PaymentMethod = *in.PaymentMethod
		if *in.PaymentMethod != model.PaymentCreditCard && in.Card == nil {
			res.Card = nil
		}
	}
	if in.Card != nil {
		res.Card = in.Card
	}
	if in.SpecialRequests != nil {
		res.SpecialRequests = *in.SpecialRequests
	}
	if err := validateStay(res.CheckInDate, res.CheckOutDate, res.Guests); err != nil {
		return nil, err
	}
	if err := validatePayment(res.PaymentMethod, res.Card); err != nil {
		return nil, err
	}

	roomChanged := res.RoomID != prev.RoomID
	stayChanged := roomChanged || !res.CheckInDate.Equal(prev.CheckInDate) || !res.CheckOutDate.Equal(prev.CheckOutDate)
	// A released stay may have been rebooked since; reviving it claims the
	// dates again.
	reactivated := !prev.Status.Blocking() && res.Status.Blocking()
	reprice := stayChanged || res.Guests != prev.Guests || res.PaymentMethod != prev.PaymentMethod
	if reprice || reactivated {
		unlock, err := s.locker.Lock(ctx, roomLockKey(res.RoomID), s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock room %d: %w", res.RoomID, err)
		}
		defer unlock()

		rm, err := s.room(ctx, res.RoomID)
		if err != nil {
			return nil, err
		}
		if res.Guests > rm.Capacity {
			return nil, fail(ErrValidation, "Room %s holds at most %d guests", rm.Number, rm.Capacity)
		}
		if (stayChanged || reactivated) && res.Status.Blocking() {
			if err := s.checkConflict(ctx, res.RoomID, res.CheckInDate, res.CheckOutDate, res.ID); err != nil {
				return nil, err
			}
		}
		if reprice {
			q := PriceStay(rm.Price, res.CheckInDate, res.CheckOutDate, res.IsCompanyBooking, res.PaymentMethod)
			res.TotalAmount, res.DepositAmount, res.Discount = q.Total, q.Deposit, q.Discount
		}
	}

	if err := s.store.Update(ctx, res, prev.Status); err != nil {
		return nil, s.writeErr(err, id)
	}

	if roomChanged && prev.Status.Blocking() {
		if err := s.setRoom(ctx, res.ID, prev.RoomID, model.RoomAvailable); err != nil {
			return nil, err
		}
	}
	if roomChanged || res.Status != prev.Status {
		if err := s.applyRoomStatus(ctx, res, res.Status); err != nil {
			return nil, err
		}
	}
	if in.Status != nil && *in.Status == model.StatusNoShow {
		if err := s.ensureNoShowBill(ctx, res); err != nil {
			return nil, err
		}
	}

	evType := queue.EventUpdated
	switch {
	case res.Status == prev.Status:
	case res.Status == model.StatusNoShow:
		evType = queue.EventNoShow
	case res.Status == model.StatusCancelled:
		evType = queue.EventCancelled
	}
	s.publish(ctx, c, evType, res, prev.Status)
	return res, nil
}

// MarkNoShow sets a reservation to no-show and raises its bill.
func (s *ReservationService) MarkNoShow(ctx context.Context, c Caller, id uint64) (*model.Reservation, error) {
	st := model.StatusNoShow
	return s.Update(ctx, c, id, UpdateInput{Status: &st})
}

// Cancel moves a reservation to cancelled and frees its room.  Cancelling a
// cancelled reservation is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, c Caller, id uint64) (*model.Reservation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.load(ctx, id)
	if err != nil {
		s.observe(string(ActionCancel), err)
		return nil, err
	}
	if !Policy(c, res).Has(CanCancel) {
		err := fail(ErrForbidden, "Not authorized to cancel this reservation")
		s.observe(string(ActionCancel), err)
		return nil, err
	}
	if res.Status == model.StatusCancelled {
		s.observe(string(ActionCancel), nil)
		return res, nil
	}
	res, err = s.transition(ctx, c, res, ActionCancel)
	s.observe(string(ActionCancel), err)
	return res, err
}

// CheckIn moves a confirmed reservation to checked-in.  Staff only.
func (s *ReservationService) CheckIn(ctx context.Context, c Caller, id uint64) (*model.Reservation, error) {
	res, err := s.staffTransition(ctx, c, id, ActionCheckIn, CanCheckIn, "Only confirmed reservations can be checked in")
	s.observe(string(ActionCheckIn), err)
	return res, err
}

// CheckOut moves a checked-in reservation to checked-out.  Staff only.
func (s *ReservationService) CheckOut(ctx context.Context, c Caller, id uint64) (*model.Reservation, error) {
	res, err := s.staffTransition(ctx, c, id, ActionCheckOut, CanCheckOut, "Only checked-in reservations can be checked out")
	s.observe(string(ActionCheckOut), err)
	return res, err
}

func (s *ReservationService) staffTransition(ctx context.Context, c Caller, id uint64, a Action, need Actions, invalid string) (*model.Reservation, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Policy(c, res).Has(need) {
		return nil, fail(ErrForbidden, "Not authorized to %s reservations", a)
	}
	if _, ok := Next(a, res.Status); !ok {
		return nil, fail(ErrInvalidTransition, "%s (current status: %s)", invalid, res.Status)
	}
	return s.transition(ctx, c, res, a)
}

// transition performs a table-driven status change with a conditional
// write, then applies the room side effect.
func (s *ReservationService) transition(ctx context.Context, c Caller, res *model.Reservation, a Action) (*model.Reservation, error) {
	from := res.Status
	to, ok := Next(a, from)
	if !ok {
		return nil, fail(ErrInvalidTransition, "Cannot %s a %s reservation", a, from)
	}
	if err := s.store.TransitionStatus(ctx, res.ID, from, to); err != nil {
		return nil, s.writeErr(err, res.ID)
	}
	res.Status = to
	res.UpdatedAt = s.now().UTC()
	if err := s.applyRoomStatus(ctx, res, to); err != nil {
		return nil, err
	}
	s.publish(ctx, c, eventFor(to), res, from)
	return res, nil
}

func eventFor(to model.ReservationStatus) string {
	switch to {
	case model.StatusCheckedIn:
		return queue.EventCheckedIn
	case model.StatusCheckedOut:
		return queue.EventCheckedOut
	case model.StatusCancelled:
		return queue.EventCancelled
	case model.StatusNoShow:
		return queue.EventNoShow
	}
	return queue.EventUpdated
}

// Delete removes a reservation.  Staff may delete any reservation; owners
// only cancelled ones.  The room is released whatever the prior status.
func (s *ReservationService) Delete(ctx context.Context, c Caller, id uint64) error {
	err := s.delete(ctx, c, id)
	s.observe("delete", err)
	return err
}

func (s *ReservationService) delete(ctx context.Context, c Caller, id uint64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	allowed := Policy(c, res)
	switch {
	case allowed.Has(CanDelete):
	case allowed.Has(CanDeleteCancelled):
		if res.Status != model.StatusCancelled {
			return fail(ErrInvalidTransition, "Only cancelled reservations can be deleted")
		}
	default:
		return fail(ErrForbidden, "Not authorized to delete this reservation")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrNotFound, "Reservation not found")
		}
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	if err := s.setRoom(ctx, id, res.RoomID, model.RoomAvailable); err != nil {
		return err
	}
	s.publish(ctx, c, queue.EventDeleted, res, res.Status)
	return nil
}

// SweepResult summarises one no-show sweep.
type SweepResult struct {
	Candidates int
	Cancelled  int
	Skipped    int // changed by someone else since the scan
	Failed     int
}

// SweepNoShows cancels every credit card no-show whose check-in has passed
// and frees its room.  Each candidate is handled on its own; one failure
// does not stop the rest.  The returned error is only set when the scan
// itself fails.
func (s *ReservationService) SweepNoShows(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	sctx, cancel := s.bound(ctx)
	candidates, err := s.store.ListNoShowCandidates(sctx, s.now())
	cancel()
	if err != nil {
		return out, fmt.Errorf("scan no-show reservations: %w", err)
	}
	out.Candidates = len(candidates)

	for i := range candidates {
		res := &candidates[i]
		if ctx.Err() != nil {
			out.Failed += out.Candidates - i
			break
		}
		rctx, cancel := s.bound(ctx)
		_, err := s.transition(rctx, Caller{}, res, ActionSweep)
		cancel()
		switch {
		case err == nil:
			out.Cancelled++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			out.Skipped++
		default:
			out.Failed++
			s.log.Error().Err(err).Uint64("reservation_id", res.ID).Msg("no-show sweep: cancel failed")
		}
		s.observe(string(ActionSweep), err)
	}
	return out, nil
}

// ensureNoShowBill creates the no-show bill unless one already exists.
// The unique key on the reservation makes a concurrent second insert fail
// with ErrDuplicate, which counts as already billed.
func (s *ReservationService) ensureNoShowBill(ctx context.Context, res *model.Reservation) error {
	_, err := s.bills.FindByReservation(ctx, res.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("look up bill for reservation %d: %w", res.ID, err)
	}
	method := res.PaymentMethod
	if method == model.PaymentPending || method == "" {
		method = model.PaymentCash
	}
	b := &model.Billing{
		ReservationID:     res.ID,
		CustomerID:        res.CustomerID,
		RoomCharges:       res.TotalAmount,
		AdditionalCharges: []model.Charge{},
		TotalAmount:       res.TotalAmount,
		PaidAmount:        res.DepositAmount,
		PaymentMethod:     method,
		PaymentStatus:     model.PaymentStatusFor(res.DepositAmount, res.TotalAmount),
	}
	if err := s.bills.Create(ctx, b); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		s.log.Error().Err(err).Uint64("reservation_id", res.ID).Msg("reservation marked no-show but bill creation failed")
		return fmt.Errorf("create no-show bill for reservation %d: %w", res.ID, err)
	}
	return nil
}

func (s *ReservationService) applyRoomStatus(ctx context.Context, res *model.Reservation, st model.ReservationStatus) error {
	rs, ok := roomStatusAfter(st)
	if !ok {
		return nil
	}
	return s.setRoom(ctx, res.ID, res.RoomID, rs)
}

// setRoom writes the room side effect of a reservation change.  The
// reservation write has already happened; a failure here is logged and
// surfaced as unexpected.
func (s *ReservationService) setRoom(ctx context.Context, resID, roomID uint64, st model.RoomStatus) error {
	if err := s.rooms.UpdateStatus(ctx, roomID, st); err != nil {
		s.log.Error().Err(err).Uint64("reservation_id", resID).Uint64("room_id", roomID).
			Str("room_status", string(st)).Msg("reservation saved but room status update failed")
		return fmt.Errorf("reservation %d saved but room %d status update failed: %w", resID, roomID, err)
	}
	if s.roomsChanged != nil {
		if err := s.roomsChanged(ctx); err != nil {
			s.log.Warn().Err(err).Uint64("room_id", roomID).Msg("room change hook failed")
		}
	}
	return nil
}

// writeErr maps conditional-write failures.
func (s *ReservationService) writeErr(err error, id uint64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(ErrNotFound, "Reservation not found")
	case errors.Is(err, repository.ErrStaleStatus):
		return fail(ErrInvalidTransition, "Reservation status changed concurrently; reload and retry")
	}
	return fmt.Errorf("write reservation %d: %w", id, err)
}

func (s *ReservationService) publish(ctx context.Context, c Caller, typ string, res *model.Reservation, from model.ReservationStatus) {
	if s.events == nil {
		return
	}
	ev := queue.ReservationEvent{
		Type:          typ,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		CustomerID:    res.CustomerID,
		FromStatus:    string(from),
		ToStatus:      string(res.Status),
		ActorID:       c.ID,
		ActorRole:     string(c.Role),
		CheckIn:       res.CheckInDate.Format(time.RFC3339),
		CheckOut:      res.CheckOutDate.Format(time.RFC3339),
		TotalAmount:   res.TotalAmount.StringFixed(2),
		OccurredAt:    s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Uint64("reservation_id", res.ID).Msg("event publish failed")
	}
}

func (s *ReservationService) observe(action string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrValidation):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	observability.ObserveTransition(action, outcome)
}
