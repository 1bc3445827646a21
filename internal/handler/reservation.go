package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-front-desk/internal/model"
    "github.com/iliyamo/hotel-front-desk/internal/service"
    "github.com/iliyamo/hotel-front-desk/internal/utils"
)

// ReservationEngine is the lifecycle API the handler drives.
// *service.ReservationService implements it.
type ReservationEngine interface {
    List(ctx context.Context, c service.Caller, opts service.ListOptions) ([]model.Reservation, error)
    Get(ctx context.Context, c service.Caller, id uint64) (*model.Reservation, error)
    Create(ctx context.Context, c service.Caller, in service.CreateInput) (*model.Reservation, error)
    Update(ctx context.Context, c service.Caller, id uint64, in service.UpdateInput) (*model.Reservation, error)
    Cancel(ctx context.Context, c service.Caller, id uint64) (*model.Reservation, error)
    CheckIn(ctx context.Context, c service.Caller, id uint64) (*model.Reservation, error)
    CheckOut(ctx context.Context, c service.Caller, id uint64) (*model.Reservation, error)
    Delete(ctx context.Context, c service.Caller, id uint64) error
}

// ReservationHandler serves /v1/reservations.  Authorization beyond
// "authenticated" is decided by the engine's access policy.
type ReservationHandler struct {
    Engine ReservationEngine
}

func NewReservationHandler(engine ReservationEngine) *ReservationHandler {
    if engine == nil {
        panic("nil engine passed to NewReservationHandler")
    }
    return &ReservationHandler{Engine: engine}
}

// cardReq accepts either a full card number, reduced to its last four
// digits on arrival, or already-masked details.
type cardReq struct {
    CardNumber string `json:"cardNumber"`
    Last4      string `json:"last4"`
    ExpMonth   int    `json:"expMonth"`
    ExpYear    int    `json:"expYear"`
}

func (r *cardReq) toModel() (*model.CardDetails, error) {
    if r == nil {
        return nil, nil
    }
    last4 := strings.TrimSpace(r.Last4)
    if r.CardNumber != "" {
        l4, err := utils.CardLast4(r.CardNumber)
        if err != nil {
            return nil, err
        }
        last4 = l4
    }
    return &model.CardDetails{Last4: last4, ExpMonth: r.ExpMonth, ExpYear: r.ExpYear}, nil
}

type createReservationReq struct {
    RoomID          uint64   `json:"roomId"`
    CustomerID      *uint64  `json:"customerId"`
    CheckInDate     string   `json:"checkInDate"`
    CheckOutDate    string   `json:"checkOutDate"`
    Guests          int      `json:"guests"`
    Status          string   `json:"status"`
    PaymentMethod   string   `json:"paymentMethod"`
    CardDetails     *cardReq `json:"cardDetails"`
    SpecialRequests string   `json:"specialRequests"`
}

type updateReservationReq struct {
    RoomID          *uint64  `json:"roomId"`
    CheckInDate     *string  `json:"checkInDate"`
    CheckOutDate    *string  `json:"checkOutDate"`
    Guests          *int     `json:"guests"`
    Status          *string  `json:"status"`
    PaymentMethod   *string  `json:"paymentMethod"`
    CardDetails     *cardReq `json:"cardDetails"`
    SpecialRequests *string  `json:"specialRequests"`
}

// List handles GET /v1/reservations.  Optional filters: status, roomId.
func (h *ReservationHandler) List(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var opts service.ListOptions
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseReservationStatus(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status filter")
        }
        opts.Status = &st
    }
    if s := c.QueryParam("roomId"); s != "" {
        id, err := strconv.ParseUint(s, 10, 64)
        if err != nil {
            return fail(c, http.StatusBadRequest, "Invalid roomId filter")
        }
        opts.RoomID = &id
    }
    out, err := h.Engine.List(c.Request().Context(), who, opts)
    if err != nil {
        return fromError(c, err)
    }
    return okList(c, out)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    return h.single(c, h.Engine.Get, http.StatusOK)
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    in := service.CreateInput{
        RoomID:          req.RoomID,
        CustomerID:      req.CustomerID,
        Guests:          req.Guests,
        SpecialRequests: strings.TrimSpace(req.SpecialRequests),
    }
    if in.CheckIn, err = parseDate(req.CheckInDate); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid checkInDate")
    }
    if in.CheckOut, err = parseDate(req.CheckOutDate); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid checkOutDate")
    }
    if req.Status != "" {
        st, ok := model.ParseReservationStatus(req.Status)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status")
        }
        in.Status = st
    }
    if req.PaymentMethod != "" {
        pm, ok := model.ParsePaymentMethod(req.PaymentMethod)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid paymentMethod")
        }
        in.PaymentMethod = pm
    }
    if in.Card, err = req.CardDetails.toModel(); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid card number")
    }

    res, err := h.Engine.Create(c.Request().Context(), who, in)
    if err != nil {
        return fromError(c, err)
    }
    return success(c, http.StatusCreated, res)
}

// Update handles PUT /v1/reservations/:id.
func (h *ReservationHandler) Update(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    var req updateReservationReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }

    in := service.UpdateInput{RoomID: req.RoomID, Guests: req.Guests, SpecialRequests: req.SpecialRequests}
    if req.CheckInDate != nil {
        t, err := parseDate(*req.CheckInDate)
        if err != nil {
            return fail(c, http.StatusBadRequest, "Invalid checkInDate")
        }
        in.CheckIn = &t
    }
    if req.CheckOutDate != nil {
        t, err := parseDate(*req.CheckOutDate)
        if err != nil {
            return fail(c, http.StatusBadRequest, "Invalid checkOutDate")
        }
        in.CheckOut = &t
    }
    if req.Status != nil {
        st, ok := model.ParseReservationStatus(*req.Status)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status")
        }
        in.Status = &st
    }
    if req.PaymentMethod != nil {
        pm, ok := model.ParsePaymentMethod(*req.PaymentMethod)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid paymentMethod")
        }
        in.PaymentMethod = &pm
    }
    if in.Card, err = req.CardDetails.toModel(); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid card number")
    }

    res, err := h.Engine.Update(c.Request().Context(), who, id, in)
    if err != nil {
        return fromError(c, err)
    }
    return success(c, http.StatusOK, res)
}

// Cancel handles PUT /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    return h.single(c, h.Engine.Cancel, http.StatusOK)
}

// CheckIn handles PUT /v1/reservations/:id/checkin.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
    return h.single(c, h.Engine.CheckIn, http.StatusOK)
}

// CheckOut handles PUT /v1/reservations/:id/checkout.
func (h *ReservationHandler) CheckOut(c echo.Context) error {
    return h.single(c, h.Engine.CheckOut, http.StatusOK)
}

// Delete handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    if err := h.Engine.Delete(c.Request().Context(), who, id); err != nil {
        return fromError(c, err)
    }
    return okMessage(c, "Reservation deleted")
}

type byID func(ctx context.Context, c service.Caller, id uint64) (*model.Reservation, error)

func (h *ReservationHandler) single(c echo.Context, op byID, status int) error {
    who, err := caller(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    res, err := op(c.Request().Context(), who, id)
    if err != nil {
        return fromError(c, err)
    }
    return success(c, status, res)
}
