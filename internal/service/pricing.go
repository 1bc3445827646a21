package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-front-desk/internal/model"
)

// CompanyDiscountPct is the discount granted on travel company bookings.
const CompanyDiscountPct = 15

var (
	hundred     = decimal.NewFromInt(100)
	depositRate = decimal.NewFromFloat(0.5)
)

// Quote is the price of one stay.
type Quote struct {
	Nights   int
	Total    decimal.Decimal
	Deposit  decimal.Decimal
	Discount int
}

// Nights counts billable nights; a started day counts as a full night.
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	n := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		n++
	}
	return n
}

// PriceStay prices a stay at the room's nightly rate.  Company bookings get
// CompanyDiscountPct off and credit card bookings put down half the total.
func PriceStay(nightly decimal.Decimal, checkIn, checkOut time.Time, company bool, method model.PaymentMethod) Quote {
	q := Quote{Nights: Nights(checkIn, checkOut)}
	q.Total = nightly.Mul(decimal.NewFromInt(int64(q.Nights)))
	if company {
		q.Discount = CompanyDiscountPct
		q.Total = q.Total.Mul(hundred.Sub(decimal.NewFromInt(CompanyDiscountPct))).Div(hundred)
	}
	q.Total = q.Total.Round(2)
	q.Deposit = decimal.Zero
	if method == model.PaymentCreditCard {
		q.Deposit = q.Total.Mul(depositRate).Round(2)
	}
	return q
}
