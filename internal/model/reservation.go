package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation.  The set is
// closed; ParseReservationStatus rejects anything outside it.
type ReservationStatus string

const (
    StatusPending    ReservationStatus = "pending"
    StatusConfirmed  ReservationStatus = "confirmed"
    StatusCheckedIn  ReservationStatus = "checked-in"
    StatusCheckedOut ReservationStatus = "checked-out"
    StatusCancelled  ReservationStatus = "cancelled"
    StatusNoShow     ReservationStatus = "no-show"
)

// AllReservationStatuses lists every valid status in lifecycle order.
var AllReservationStatuses = []ReservationStatus{
    StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow,
}

// ParseReservationStatus validates a raw status string.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
    for _, st := range AllReservationStatuses {
        if string(st) == s {
            return st, true
        }
    }
    return "", false
}

// Blocking reports whether a reservation in this status still holds its
// room for the booked dates.  Only cancelled and checked-out stays release
// the interval.
func (s ReservationStatus) Blocking() bool {
    return s != StatusCancelled && s != StatusCheckedOut
}

// PaymentMethod is how the guest intends to pay.
type PaymentMethod string

const (
    PaymentPending    PaymentMethod = "pending"
    PaymentCreditCard PaymentMethod = "credit_card"
    PaymentCash       PaymentMethod = "cash"
)

// ParsePaymentMethod validates a raw payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
    switch PaymentMethod(s) {
    case PaymentPending, PaymentCreditCard, PaymentCash:
        return PaymentMethod(s), true
    }
    return "", false
}

// CardDetails holds the masked card metadata captured at booking time.  The
// full card number is never stored.
type CardDetails struct {
    Last4    string `json:"last4"`
    ExpMonth int    `json:"expMonth"`
    ExpYear  int    `json:"expYear"`
}

// Reservation records a guest's stay in a room between two timestamps.
//
// Fields:
//  ID               – primary key identifier.
//  CustomerID       – owning customer (or the travel company booking for itself).
//  RoomID           – room being reserved.
//  CheckInDate      – arrival timestamp.
//  CheckOutDate     – departure timestamp, strictly after CheckInDate.
//  Guests           – number of guests.
//  Status           – lifecycle state.
//  TotalAmount      – price for the whole stay after discounts.
//  DepositAmount    – prepayment captured at booking time.
//  Discount         – percent discount applied (company bookings).
//  PaymentMethod    – pending, credit_card or cash.
//  Card             – masked card metadata (credit_card only).
//  SpecialRequests  – free text from the guest.
//  IsCompanyBooking – set when a travel company made the booking.
//  CompanyID        – the travel company user, when IsCompanyBooking.
type Reservation struct {
    ID               uint64            `json:"id"`                        // reservations.id
    CustomerID       uint64            `json:"customerId"`                // reservations.customer_id
    RoomID           uint64            `json:"roomId"`                    // reservations.room_id
    CheckInDate      time.Time         `json:"checkInDate"`               // reservations.check_in
    CheckOutDate     time.Time         `json:"checkOutDate"`              // reservations.check_out
    Guests           int               `json:"guests"`                    // reservations.guests
    Status           ReservationStatus `json:"status"`                    // reservations.status
    TotalAmount      decimal.Decimal   `json:"totalAmount"`               // reservations.total_amount
    DepositAmount    decimal.Decimal   `json:"depositAmount"`             // reservations.deposit_amount
    Discount         int               `json:"discount,omitempty"`        // reservations.discount_pct
    PaymentMethod    PaymentMethod     `json:"paymentMethod"`             // reservations.payment_method
    Card             *CardDetails      `json:"cardDetails,omitempty"`     // reservations.card_last4/exp_month/exp_year
    SpecialRequests  string            `json:"specialRequests,omitempty"` // reservations.special_requests
    IsCompanyBooking bool              `json:"isCompanyBooking"`          // reservations.is_company_booking
    CompanyID        *uint64           `json:"companyId,omitempty"`       // reservations.company_id (nullable)
    CreatedAt        time.Time         `json:"createdAt"`                 // reservations.created_at
    UpdatedAt        time.Time         `json:"updatedAt"`                 // reservations.updated_at
}

// Overlaps reports whether the reservation's stay intersects [checkIn,
// checkOut).  Touching endpoints do not overlap, so a guest may arrive on
// the day the previous guest leaves.
func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
    return r.CheckInDate.Before(checkOut) && r.CheckOutDate.After(checkIn)
}
