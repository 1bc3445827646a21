package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentStatus summarises how much of a bill has been settled.
type PaymentStatus string

const (
    PaymentStatusPending  PaymentStatus = "pending"
    PaymentStatusPartial  PaymentStatus = "partial"
    PaymentStatusPaid     PaymentStatus = "paid"
    PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentStatusFor derives the status from the paid and total amounts:
// paid when the payment covers the total, partial when something but not
// everything was paid, pending otherwise.
func PaymentStatusFor(paid, total decimal.Decimal) PaymentStatus {
    switch {
    case paid.GreaterThanOrEqual(total):
        return PaymentStatusPaid
    case paid.IsPositive():
        return PaymentStatusPartial
    default:
        return PaymentStatusPending
    }
}

// Charge is an additional line item on a bill (minibar, late checkout...).
type Charge struct {
    Description string          `json:"description"`
    Amount      decimal.Decimal `json:"amount"`
}

// Billing represents a row in the `billing` table.  A bill references its
// reservation weakly; deleting the reservation leaves the bill in place.
type Billing struct {
    ID                uint64          `json:"id"`                // billing.id
    ReservationID     uint64          `json:"reservationId"`     // billing.reservation_id (unique)
    CustomerID        uint64          `json:"customerId"`        // billing.customer_id
    RoomCharges       decimal.Decimal `json:"roomCharges"`       // billing.room_charges
    AdditionalCharges []Charge        `json:"additionalCharges"` // billing.additional_charges (JSON array)
    TotalAmount       decimal.Decimal `json:"totalAmount"`       // billing.total_amount
    PaidAmount        decimal.Decimal `json:"paidAmount"`        // billing.paid_amount
    PaymentMethod     PaymentMethod   `json:"paymentMethod"`     // billing.payment_method
    PaymentStatus     PaymentStatus   `json:"paymentStatus"`     // billing.payment_status
    CreatedAt         time.Time       `json:"createdAt"`         // billing.created_at
    UpdatedAt         time.Time       `json:"updatedAt"`         // billing.updated_at
}
