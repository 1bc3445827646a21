package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"

    "github.com/iliyamo/hotel-front-desk/internal/model"
)

// BillingRepo persists bills.  There is at most one bill per reservation;
// the unique key on reservation_id backs the existence check the
// reservation service performs before creating a no-show bill.
type BillingRepo struct {
    db *sql.DB
}

// NewBillingRepo returns a new BillingRepo bound to the given database.
func NewBillingRepo(db *sql.DB) *BillingRepo { return &BillingRepo{db: db} }

const billingColumns = `id, reservation_id, customer_id, room_charges, additional_charges, total_amount,
    paid_amount, payment_method, payment_status, created_at, updated_at`

func scanBilling(s rowScanner) (*model.Billing, error) {
    var (
        b       model.Billing
        charges []byte
        method  string
        status  string
    )
    err := s.Scan(&b.ID, &b.ReservationID, &b.CustomerID, &b.RoomCharges, &charges, &b.TotalAmount,
        &b.PaidAmount, &method, &status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return nil, err
    }
    b.PaymentMethod = model.PaymentMethod(method)
    b.PaymentStatus = model.PaymentStatus(status)
    b.AdditionalCharges = []model.Charge{}
    if len(charges) > 0 {
        if err := json.Unmarshal(charges, &b.AdditionalCharges); err != nil {
            return nil, err
        }
    }
    return &b, nil
}

// Create inserts a bill.  A second bill for the same reservation yields
// ErrDuplicate.
func (r *BillingRepo) Create(ctx context.Context, b *model.Billing) error {
    if b.AdditionalCharges == nil {
        b.AdditionalCharges = []model.Charge{}
    }
    charges, err := json.Marshal(b.AdditionalCharges)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO billing (reservation_id, customer_id, room_charges, additional_charges, total_amount,
            paid_amount, payment_method, payment_status) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
        b.ReservationID, b.CustomerID, b.RoomCharges, string(charges), b.TotalAmount,
        b.PaidAmount, string(b.PaymentMethod), string(b.PaymentStatus))
    if err != nil {
        if isDuplicate(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    created, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *b = *created
    return nil
}

// GetByID returns a bill or ErrNotFound.
func (r *BillingRepo) GetByID(ctx context.Context, id uint64) (*model.Billing, error) {
    b, err := scanBilling(r.db.QueryRowContext(ctx, `SELECT `+billingColumns+` FROM billing WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return b, err
}

// FindByReservation returns the bill for a reservation or ErrNotFound.
func (r *BillingRepo) FindByReservation(ctx context.Context, reservationID uint64) (*model.Billing, error) {
    b, err := scanBilling(r.db.QueryRowContext(ctx,
        `SELECT `+billingColumns+` FROM billing WHERE reservation_id = ?`, reservationID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return b, err
}

// List returns bills, newest first.  A non-nil customerID restricts the
// result to that customer.
func (r *BillingRepo) List(ctx context.Context, customerID *uint64) ([]model.Billing, error) {
    q := `SELECT ` + billingColumns + ` FROM billing`
    var args []any
    if customerID != nil {
        q += ` WHERE customer_id = ?`
        args = append(args, *customerID)
    }
    q += ` ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Billing{}
    for rows.Next() {
        b, err := scanBilling(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// UpdatePayment records the paid amount and payment status of a bill.
func (r *BillingRepo) UpdatePayment(ctx context.Context, b *model.Billing) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE billing SET paid_amount = ?, payment_method = ?, payment_status = ? WHERE id = ?`,
        b.PaidAmount, string(b.PaymentMethod), string(b.PaymentStatus), b.ID)
    if err != nil {
        return err
    }
    if err := affectedOne(res, ErrNotFound); err != nil {
        return err
    }
    fresh, err := r.GetByID(ctx, b.ID)
    if err != nil {
        return err
    }
    *b = *fresh
    return nil
}
