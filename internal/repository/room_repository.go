package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strings"

    "github.com/iliyamo/hotel-front-desk/internal/model"
)

// RoomRepo provides data access to the rooms table.  Besides the
// administrative CRUD it exposes the two operations the reservation
// service relies on: GetByID and UpdateStatus.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the provided database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// RoomFilter narrows List.  Empty fields do not filter.
type RoomFilter struct {
    Status model.RoomStatus
    Type   model.RoomType
    Floor  *int
}

const roomColumns = `id, number, type, capacity, price, amenities, status, floor, created_at, updated_at`

func scanRoom(s rowScanner) (*model.Room, error) {
    var (
        rm        model.Room
        typ       string
        status    string
        amenities []byte
    )
    if err := s.Scan(&rm.ID, &rm.Number, &typ, &rm.Capacity, &rm.Price, &amenities, &status, &rm.Floor, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
        return nil, err
    }
    rm.Type = model.RoomType(typ)
    rm.Status = model.RoomStatus(status)
    rm.Amenities = []string{}
    if len(amenities) > 0 {
        if err := json.Unmarshal(amenities, &rm.Amenities); err != nil {
            return nil, err
        }
    }
    return &rm, nil
}

func amenitiesJSON(a []string) (string, error) {
    if a == nil {
        a = []string{}
    }
    b, err := json.Marshal(a)
    return string(b), err
}

// GetByID returns a room or ErrNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    rm, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return rm, err
}

// List returns rooms ordered by floor and number.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
    var (
        where []string
        args  []any
    )
    if f.Status != "" {
        where = append(where, "status = ?")
        args = append(args, string(f.Status))
    }
    if f.Type != "" {
        where = append(where, "type = ?")
        args = append(args, string(f.Type))
    }
    if f.Floor != nil {
        where = append(where, "floor = ?")
        args = append(args, *f.Floor)
    }
    q := `SELECT ` + roomColumns + ` FROM rooms`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY floor, number"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Room{}
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *rm)
    }
    return out, rows.Err()
}

// Create inserts a room.  A reused room number yields ErrDuplicate.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
    return r.createWith(ctx, r.db, rm)
}

type execQuerier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *RoomRepo) createWith(ctx context.Context, db execQuerier, rm *model.Room) error {
    amen, err := amenitiesJSON(rm.Amenities)
    if err != nil {
        return err
    }
    if rm.Status == "" {
        rm.Status = model.RoomAvailable
    }
    res, err := db.ExecContext(ctx,
        `INSERT INTO rooms (number, type, capacity, price, amenities, status, floor) VALUES (?, ?, ?, ?, ?, ?, ?)`,
        rm.Number, string(rm.Type), rm.Capacity, rm.Price, amen, string(rm.Status), rm.Floor)
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
    created, err := scanRoom(db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
    if err != nil {
        return err
    }
    *rm = *created
    return nil
}

// CreateBulk inserts all rooms in one transaction; either every room is
// created or none is.
func (r *RoomRepo) CreateBulk(ctx context.Context, rooms []model.Room) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    for i := range rooms {
        if err := r.createWith(ctx, tx, &rooms[i]); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Update writes the administrative fields of a room, including status.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
    amen, err := amenitiesJSON(rm.Amenities)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        `UPDATE rooms SET number = ?, type = ?, capacity = ?, price = ?, amenities = ?, status = ?, floor = ? WHERE id = ?`,
        rm.Number, string(rm.Type), rm.Capacity, rm.Price, amen, string(rm.Status), rm.Floor, rm.ID)
    if err != nil {
        if isDuplicate(err) {
            return ErrDuplicate
        }
        return err
    }
    if err := affectedOne(res, ErrNotFound); err != nil {
        return err
    }
    fresh, err := r.GetByID(ctx, rm.ID)
    if err != nil {
        return err
    }
    *rm = *fresh
    return nil
}

// UpdateStatus sets the cached availability of a room.
func (r *RoomRepo) UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus) error {
    res, err := r.db.ExecContext(ctx, `UPDATE rooms SET status = ? WHERE id = ?`, string(status), id)
    if err != nil {
        return err
    }
    return affectedOne(res, ErrNotFound)
}

// Delete removes a room.  Rooms with blocking reservations are refused
// with ErrConflict.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
    var active int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE room_id = ? AND status NOT IN ('cancelled', 'checked-out')`,
        id).Scan(&active)
    if err != nil {
        return err
    }
    if active > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return affectedOne(res, ErrNotFound)
}
