package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/hotel-front-desk/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  All
// timestamp fields are assumed to be stored in UTC.  Status changes on
// existing rows go through conditional writes keyed on the status the
// caller last read, so a concurrent transition is reported as
// ErrStaleStatus instead of being silently overwritten.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows List.  Nil fields do not filter.
type ReservationFilter struct {
    CustomerID *uint64
    CompanyID  *uint64 // also requires is_company_booking = 1
    RoomID     *uint64
    Status     *model.ReservationStatus
}

const reservationColumns = `id, customer_id, room_id, check_in, check_out, guests, status,
    total_amount, deposit_amount, discount_pct, payment_method,
    card_last4, card_exp_month, card_exp_year, special_requests,
    is_company_booking, company_id, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
    var (
        res       model.Reservation
        status    string
        method    string
        last4     sql.NullString
        expMonth  sql.NullInt64
        expYear   sql.NullInt64
        requests  sql.NullString
        companyID sql.NullInt64
    )
    err := s.Scan(
        &res.ID, &res.CustomerID, &res.RoomID, &res.CheckInDate, &res.CheckOutDate, &res.Guests, &status,
        &res.TotalAmount, &res.DepositAmount, &res.Discount, &method,
        &last4, &expMonth, &expYear, &requests,
        &res.IsCompanyBooking, &companyID, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    res.Status = model.ReservationStatus(status)
    res.PaymentMethod = model.PaymentMethod(method)
    if last4.Valid {
        res.Card = &model.CardDetails{Last4: last4.String, ExpMonth: int(expMonth.Int64), ExpYear: int(expYear.Int64)}
    }
    res.SpecialRequests = requests.String
    if companyID.Valid {
        cid := uint64(companyID.Int64)
        res.CompanyID = &cid
    }
    return &res, nil
}

// cardArgs flattens optional card metadata into nullable column values.
func cardArgs(c *model.CardDetails) (any, any, any) {
    if c == nil {
        return nil, nil, nil
    }
    return c.Last4, c.ExpMonth, c.ExpYear
}

func nullableID(id *uint64) any {
    if id == nil {
        return nil
    }
    return *id
}

// Create inserts a new reservation and populates the generated ID and
// timestamps on the provided record.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (customer_id, room_id, check_in, check_out, guests, status, total_amount, deposit_amount,
         discount_pct, payment_method, card_last4, card_exp_month, card_exp_year, special_requests,
         is_company_booking, company_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    last4, expMonth, expYear := cardArgs(res.Card)
    result, err := r.db.ExecContext(ctx, q,
        res.CustomerID, res.RoomID, res.CheckInDate.UTC(), res.CheckOutDate.UTC(), res.Guests, string(res.Status),
        res.TotalAmount, res.DepositAmount, res.Discount, string(res.PaymentMethod),
        last4, expMonth, expYear, res.SpecialRequests,
        res.IsCompanyBooking, nullableID(res.CompanyID),
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    // Query back the full row to populate timestamps and defaults
    created, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *res = *created
    return nil
}

// GetByID returns a reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// List returns reservations matching the filter, newest first.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
    var (
        where []string
        args  []any
    )
    if f.CustomerID != nil {
        where = append(where, "customer_id = ?")
        args = append(args, *f.CustomerID)
    }
    if f.CompanyID != nil {
        where = append(where, "is_company_booking = 1 AND company_id = ?")
        args = append(args, *f.CompanyID)
    }
    if f.RoomID != nil {
        where = append(where, "room_id = ?")
        args = append(args, *f.RoomID)
    }
    if f.Status != nil {
        where = append(where, "status = ?")
        args = append(args, string(*f.Status))
    }
    q := `SELECT ` + reservationColumns + ` FROM reservations`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY created_at DESC, id DESC"
    return r.query(ctx, q, args...)
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// FindConflict returns a blocking reservation on roomID whose stay
// overlaps [checkIn, checkOut), or nil when the room is free.  excludeID
// skips the reservation being edited (0 excludes nothing).  Stays that
// merely touch at an endpoint do not conflict.
func (r *ReservationRepo) FindConflict(ctx context.Context, roomID uint64, checkIn, checkOut time.Time, excludeID uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE room_id = ?
          AND status NOT IN ('cancelled', 'checked-out')
          AND check_in < ? AND check_out > ?
          AND id <> ?
        ORDER BY check_in
        LIMIT 1`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, roomID, checkOut.UTC(), checkIn.UTC(), excludeID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return res, err
}

// Update writes every mutable column of res, but only while the row still
// has status expected.  It returns ErrNotFound when the row is gone and
// ErrStaleStatus when another writer changed its status first.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation, expected model.ReservationStatus) error {
    const q = `UPDATE reservations SET
        room_id = ?, check_in = ?, check_out = ?, guests = ?, status = ?, total_amount = ?,
        deposit_amount = ?, discount_pct = ?, payment_method = ?, card_last4 = ?, card_exp_month = ?,
        card_exp_year = ?, special_requests = ?
        WHERE id = ? AND status = ?`
    last4, expMonth, expYear := cardArgs(res.Card)
    result, err := r.db.ExecContext(ctx, q,
        res.RoomID, res.CheckInDate.UTC(), res.CheckOutDate.UTC(), res.Guests, string(res.Status), res.TotalAmount,
        res.DepositAmount, res.Discount, string(res.PaymentMethod), last4, expMonth,
        expYear, res.SpecialRequests,
        res.ID, string(expected),
    )
    if err != nil {
        return err
    }
    if err := affectedOne(result, ErrStaleStatus); err != nil {
        return r.classifyMiss(ctx, res.ID, err)
    }
    return r.reload(ctx, res)
}

// TransitionStatus moves a reservation from one status to another in a
// single conditional statement.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id uint64, from, to model.ReservationStatus) error {
    const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
    result, err := r.db.ExecContext(ctx, q, string(to), id, string(from))
    if err != nil {
        return err
    }
    if err := affectedOne(result, ErrStaleStatus); err != nil {
        return r.classifyMiss(ctx, id, err)
    }
    return nil
}

// classifyMiss distinguishes a deleted row from a status mismatch after a
// conditional write matched nothing.
func (r *ReservationRepo) classifyMiss(ctx context.Context, id uint64, err error) error {
    if !errors.Is(err, ErrStaleStatus) {
        return err
    }
    var one int
    if e := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one); errors.Is(e, sql.ErrNoRows) {
        return ErrNotFound
    }
    return ErrStaleStatus
}

func (r *ReservationRepo) reload(ctx context.Context, res *model.Reservation) error {
    fresh, err := r.GetByID(ctx, res.ID)
    if err != nil {
        return err
    }
    *res = *fresh
    return nil
}

// Delete removes a reservation.  Bills referencing it are kept.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
    result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return affectedOne(result, ErrNotFound)
}

// ListNoShowCandidates returns no-show reservations paid by credit card
// whose check-in is at or before now.  These are the holds the evening
// sweep converts into cancellations.
func (r *ReservationRepo) ListNoShowCandidates(ctx context.Context, now time.Time) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE status = 'no-show' AND payment_method = 'credit_card' AND check_in <= ?
        ORDER BY check_in, id`
    return r.query(ctx, q, now.UTC())
}
