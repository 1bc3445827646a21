package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog/log"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/hotel-front-desk/internal/model"
    "github.com/iliyamo/hotel-front-desk/internal/repository"
)

// RoomStore is the room persistence used by RoomHandler.
// *repository.RoomRepo implements it.
type RoomStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
    List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error)
    Create(ctx context.Context, rm *model.Room) error
    CreateBulk(ctx context.Context, rooms []model.Room) error
    Update(ctx context.Context, rm *model.Room) error
    Delete(ctx context.Context, id uint64) error
}

// RoomHandler serves public room browsing and staff room administration.
// Purge, when set, invalidates cached browse responses after a write.
type RoomHandler struct {
    Rooms RoomStore
    Purge func(ctx context.Context) error
}

func NewRoomHandler(rooms RoomStore, purge func(ctx context.Context) error) *RoomHandler {
    if rooms == nil {
        panic("nil repository passed to NewRoomHandler")
    }
    return &RoomHandler{Rooms: rooms, Purge: purge}
}

const maxBulkRooms = 200

type roomReq struct {
    Number    *string          `json:"number"`  
    Type      *string          `json:"type"`
    Capacity  *int             `json:"capacity"`
    Price     *decimal.Decimal `json:"price"`
    Amenities []string         `json:"amenities"`
    Status    *string          `json:"status"`
    Floor     *int             `json:"floor"`
}

// apply copies the present fields onto rm and validates the result.
func (r roomReq) apply(rm *model.Room) error {
    if r.Number != nil {
        rm.Number = strings.TrimSpace(*r.Number)
    }
    if r.Type != nil {
        t, ok := model.ParseRoomType(*r.Type)
        if !ok {
            return fmt.Errorf("Invalid room type %q", *r.Type)
        }
        rm.Type = t
    }
    if r.Capacity != nil {
        rm.Capacity = *r.Capacity
    }
    if r.Price != nil {
        rm.Price = *r.Price
    }
    if r.Amenities != nil {
        rm.Amenities = r.Amenities
    }
    if r.Status != nil {
        st, ok := model.ParseRoomStatus(*r.Status)
        if !ok {
            return fmt.Errorf("Invalid room status %q", *r.Status)
        }
        rm.Status = st
    }
    if r.Floor != nil {
        rm.Floor = *r.Floor
    }
    return validateRoom(rm)
}

func validateRoom(rm *model.Room) error {
    switch {
    case rm.Number == "":
        return errors.New("Room number is required")
    case rm.Type == "":
        return errors.New("Room type is required")
    case rm.Capacity < 1:
        return errors.New("Capacity must be at least 1")
    case !rm.Price.IsPositive():
        return errors.New("Price must be positive")
    case rm.Floor < 0:
        return errors.New("Floor cannot be negative")
    }
    return nil
}

// bulkReq creates Count rooms numbered from StartNumber on one floor, or
// the explicit Rooms list when given.
type bulkReq struct {
    Rooms       []roomReq        `json:"rooms"`
    Floor       int              `json:"floor"`
    StartNumber int              `json:"startNumber"`
    Count       int              `json:"count"`
    Type        string           `json:"type"`
    Capacity    int              `json:"capacity"`
    Price       decimal.Decimal  `json:"price"`
    Amenities   []string         `json:"amenities"`
}

func (b bulkReq) expand() ([]model.Room, error) {
    if len(b.Rooms) > 0 {
        if len(b.Rooms) > maxBulkRooms {
            return nil, fmt.Errorf("At most %d rooms per request", maxBulkRooms)
        }
        out := make([]model.Room, len(b.Rooms))
        for i, r := range b.Rooms {
            if err := r.apply(&out[i]); err != nil {
                return nil, fmt.Errorf("rooms[%d]: %w", i, err)
            }
        }
        return out, nil
    }
    if b.Count < 1 || b.Count > maxBulkRooms {
        return nil, fmt.Errorf("Count must be between 1 and %d", maxBulkRooms)
    }
    if b.StartNumber < 1 {
        return nil, errors.New("Start number must be positive")
    }
    typ, ok := model.ParseRoomType(b.Type)
    if !ok {
        return nil, fmt.Errorf("Invalid room type %q", b.Type)
    }
    out := make([]model.Room, b.Count)
    for i := range out {
        out[i] = model.Room{
            Number:    strconv.Itoa(b.StartNumber + i),
            Type:      typ,
            Capacity:  b.Capacity,
            Price:     b.Price,
            Amenities: b.Amenities,
            Status:    model.RoomAvailable,
            Floor:     b.Floor,
        }
        if err := validateRoom(&out[i]); err != nil {
            return nil, err
        }
    }
    return out, nil
}

// List handles GET /v1/rooms.  Optional filters: status, type, floor.
func (h *RoomHandler) List(c echo.Context) error {
    var f repository.RoomFilter
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseRoomStatus(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status filter")
        }
        f.Status = st
    }
    if s := c.QueryParam("type"); s != "" {
        t, ok := model.ParseRoomType(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid type filter")
        }
        f.Type = t
    }
    if s := c.QueryParam("floor"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil {
            return fail(c, http.StatusBadRequest, "Invalid floor filter")
        }
        f.Floor = &n
    }
    rooms, err := h.Rooms.List(c.Request().Context(), f)
    if err != nil {
        return fromError(c, err)
    }
    return okList(c, rooms)
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid room id")
    }
    rm, err := h.Rooms.GetByID(c.Request().Context(), id)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "Room not found")
    }
    if err != nil {
        return fromError(c, err)
    }
    return success(c, http.StatusOK, rm)
}

// Create handles POST /v1/rooms.
func (h *RoomHandler) Create(c echo.Context) error {
    var req roomReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    rm := model.Room{Status: model.RoomAvailable}
    if err := req.apply(&rm); err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }
    if err := h.Rooms.Create(c.Request().Context(), &rm); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return fail(c, http.StatusBadRequest, "Room number already exists")
        }
        return fromError(c, err)
    }
    h.purge(c)
    return success(c, http.StatusCreated, rm)
}

// CreateBulk handles POST /v1/rooms/bulk.  Either every room is created or
// none is.
func (h *RoomHandler) CreateBulk(c echo.Context) error {
    var req bulkReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    rooms, err := req.expand()
    if err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }
    if err := h.Rooms.CreateBulk(c.Request().Context(), rooms); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return fail(c, http.StatusBadRequest, "One or more room numbers already exist")
        }
        return fromError(c, err)
    }
    h.purge(c)
    return c.JSON(http.StatusCreated, echo.Map{"success": true, "count": len(rooms), "data": rooms})
}

// Update handles PUT /v1/rooms/:id.  Absent fields are left unchanged.
func (h *RoomHandler) Update(c echo.Context) error {
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid room id")
    }
    var req roomReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx := c.Request().Context()
    rm, err := h.Rooms.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "Room not found")
    }
    if err != nil {
        return fromError(c, err)
    }
    if err := req.apply(rm); err != nil {
        return fail(c, http.StatusBadRequest, err.Error())
    }
    if err := h.Rooms.Update(ctx, rm); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return fail(c, http.StatusBadRequest, "Room number already exists")
        }
        return fromError(c, err)
    }
    h.purge(c)
    return success(c, http.StatusOK, rm)
}

// Delete handles DELETE /v1/rooms/:id.
func (h *RoomHandler) Delete(c echo.Context) error {
    id, valid := pathID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "invalid room id")
    }
    err := h.Rooms.Delete(c.Request().Context(), id)
    switch {
    case errors.Is(err, repository.ErrConflict):
        return fail(c, http.StatusBadRequest, "Room has active reservations")
    case errors.Is(err, repository.ErrNotFound):
        return fail(c, http.StatusNotFound, "Room not found")
    case err != nil:
        return fromError(c, err)
    }
    h.purge(c)
    return okMessage(c, "Room deleted")
}

func (h *RoomHandler) purge(c echo.Context) {
    if h.Purge == nil {
        return
    }
    if err := h.Purge(context.WithoutCancel(c.Request().Context())); err != nil {
        log.Warn().Err(err).Msg("room cache purge failed")
    }
}
