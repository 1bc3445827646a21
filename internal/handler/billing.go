package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/hotel-front-desk/internal/model"
    "github.com/iliyamo/hotel-front-desk/internal/repository"
)

// BillingStore is the billing persistence used by BillingHandler.
// *repository.BillingRepo implements it.
type BillingStore interface {
    Create(ctx context.Context, b *model.Billing) error
    GetByID(ctx context.Context, id uint64) (*model.Billing, error)
    List(ctx context.Context, customerID *uint64) ([]model.Billing, error)
    UpdatePayment(ctx context.Context, b *model.Billing) error
}

// ReservationLookup resolves the reservation a manual bill is raised for.
type ReservationLookup interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
}

// BillingHandler serves /v1/billing.  Staff see and write every bill;
// other callers only read their own.
type BillingHandler struct {
    Bills        BillingStore
    Reservations ReservationLookup
}

func NewBillingHandler(bills BillingStore, reservations ReservationLookup) *BillingHandler {
    if bills == nil || reservations == nil {
        panic("nil repository passed to NewBillingHandler")
    }
    return &BillingHandler{Bills: bills, Reservations: reservations}
}

type createBillReq struct {
    ReservationID     uint64           `json:"reservationId"`
    AdditionalCharges []model.Charge   `json:"additionalCharges"`
    PaidAmount        *decimal.Decimal `json:"paidAmount"`
    PaymentMethod     string           `json:"paymentMethod"`
}

type paymentReq struct {
    Amount        decimal.Decimal `json:"amount"`
    PaymentMethod string          `json:"paymentMethod"`
    Refund        bool            `json:"refund"`
}

// List handles GET /v1/billing.
func (h *BillingHandler) List(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var scope *uint64
    if !who.Role.IsStaff() {
        scope = &who.ID
    }
    bills, err := h.Bills.List(c.Request().Context(), scope)
    if err != nil {
        return fromError(c, err)
    }
    return okList(c, bills)
}

// Get handles GET /v1/billing/:id.
func (h *BillingHandler) Get(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid billing id")
    }
    b, err := h.Bills.GetByID(c.Request().Context(), id)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "Billing record not found")
    }
    if err != nil {
        return fromError(c, err)
    }
    if !who.Role.IsStaff() && b.CustomerID != who.ID {
        return fail(c, http.StatusForbidden, "Not authorized to access this billing record")
    }
    return success(c, http.StatusOK, b)
}

// Create handles POST /v1/billing.  Room charges come from the
// reservation total; the payment status is derived from paid vs total.
func (h *BillingHandler) Create(c echo.Context) error {
    var req createBillReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    if req.ReservationID == 0 {
        return fail(c, http.StatusBadRequest, "reservationId is required")
    }
    ctx := c.Request().Context()
    res, err := h.Reservations.GetByID(ctx, req.ReservationID)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "Reservation not found")
    }
    if err != nil {
        return fromError(c, err)
    }

    if req.AdditionalCharges == nil {
        req.AdditionalCharges = []model.Charge{}
    }
    total := res.TotalAmount
    for _, ch := range req.AdditionalCharges {
        if strings.TrimSpace(ch.Description) == "" || ch.Amount.IsNegative() {
            return fail(c, http.StatusBadRequest, "Each additional charge needs a description and a non-negative amount")
        }
        total = total.Add(ch.Amount)
    }
    paid := res.DepositAmount
    if req.PaidAmount != nil {
        if req.PaidAmount.IsNegative() {
            return fail(c, http.StatusBadRequest, "paidAmount cannot be negative")
        }
        paid = *req.PaidAmount
    }
    method := res.PaymentMethod
    if req.PaymentMethod != "" {
        pm, ok := model.ParsePaymentMethod(req.PaymentMethod)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid paymentMethod")
        }
        method = pm
    }
    if method == model.PaymentPending {
        method = model.PaymentCash
    }

    b := &model.Billing{
        ReservationID:     res.ID,
        CustomerID:        res.CustomerID,
        RoomCharges:       res.TotalAmount,
        AdditionalCharges: req.AdditionalCharges,
        TotalAmount:       total,
        PaidAmount:        paid,
        PaymentMethod:     method,
        PaymentStatus:     model.PaymentStatusFor(paid, total),
    }
    if err := h.Bills.Create(ctx, b); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return fail(c, http.StatusBadRequest, "A billing record already exists for this reservation")
        }
        return fromError(c, err)
    }
    return success(c, http.StatusCreated, b)
}

// RecordPayment handles PUT /v1/billing/:id/payment.  A positive amount is
// added to the paid amount; refund=true marks the bill refunded.
func (h *BillingHandler) RecordPayment(c echo.Context) error {
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid billing id")
    }
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx := c.Request().Context()
    b, err := h.Bills.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "Billing record not found")
    }
    if err != nil {
        return fromError(c, err)
    }
    if req.PaymentMethod != "" {
        pm, ok := model.ParsePaymentMethod(req.PaymentMethod)
        if !ok || pm == model.PaymentPending {
            return fail(c, http.StatusBadRequest, "Invalid paymentMethod")
        }
        b.PaymentMethod = pm
    }
    switch {
    case req.Refund:
        b.PaymentStatus = model.PaymentStatusRefunded
    case req.Amount.IsPositive():
        if b.PaymentStatus == model.PaymentStatusRefunded {
            return fail(c, http.StatusBadRequest, "Billing record was refunded")
        }
        b.PaidAmount = b.PaidAmount.Add(req.Amount)
        b.PaymentStatus = model.PaymentStatusFor(b.PaidAmount, b.TotalAmount)
    default:
        return fail(c, http.StatusBadRequest, "amount must be positive")
    }
    if err := h.Bills.UpdatePayment(ctx, b); err != nil {
        return fromError(c, err)
    }
    return success(c, http.StatusOK, b)
}
