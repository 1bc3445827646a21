//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-front-desk/internal/database"
	"github.com/iliyamo/hotel-front-desk/internal/lock"
	"github.com/iliyamo/hotel-front-desk/internal/model"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
	"github.com/iliyamo/hotel-front-desk/internal/service"
)

// startMySQL runs a throwaway MySQL container and returns a migrated pool.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "dockertest")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=frontdesk"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "run mysql")
	t.Cleanup(func() { _ = pool.Purge(resource) })

	pool.MaxWait = 2 * time.Minute
	var db *sql.DB
	require.NoError(t, pool.Retry(func() error {
		var e error
		db, e = database.Open("root", "root", "127.0.0.1", resource.GetPort("3306/tcp"), "frontdesk")
		return e
	}), "connect mysql")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, database.Migrate(ctx, db))
	require.NoError(t, database.Migrate(ctx, db), "schema is idempotent")
	return db
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func TestMySQLRepositories(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	reservations := repository.NewReservationRepo(db)
	bills := repository.NewBillingRepo(db)

	t.Run("users and tokens", func(t *testing.T) {
		id, err := users.Create(ctx, repository.NewUser{Name: "Alice", Email: "Alice@Example.com", Password: "secret1", Role: model.RoleCustomer}, 4)
		require.NoError(t, err)
		_, err = users.Create(ctx, repository.NewUser{Name: "Alice", Email: "alice@example.com", Password: "secret1", Role: model.RoleCustomer}, 4)
		assert.ErrorIs(t, err, repository.ErrEmailExists)

		u, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		_, err = users.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, tokens.StoreRefresh(ctx, id, "hash-1", time.Now().Add(time.Hour)))
		got, err := tokens.ValidateRefresh(ctx, "hash-1")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		require.NoError(t, tokens.RevokeAllForUser(ctx, id))
		_, err = tokens.ValidateRefresh(ctx, "hash-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, tokens.RevokeByHash(ctx, "hash-1"), repository.ErrNotFound)

		require.NoError(t, tokens.StoreRefresh(ctx, id, "hash-2", time.Now().Add(-time.Minute)))
		_, err = tokens.ValidateRefresh(ctx, "hash-2")
		assert.ErrorIs(t, err, repository.ErrNotFound, "expired")
	})

	t.Run("rooms", func(t *testing.T) {
		rm := &model.Room{Number: "101", Type: model.RoomStandard, Capacity: 2, Price: decimal.NewFromInt(150), Amenities: []string{"wifi"}, Status: model.RoomAvailable, Floor: 1}
		require.NoError(t, rooms.Create(ctx, rm))
		assert.NotZero(t, rm.ID)

		err := rooms.CreateBulk(ctx, []model.Room{
			{Number: "201", Type: model.RoomSuite, Capacity: 4, Price: decimal.NewFromInt(400), Status: model.RoomAvailable, Floor: 2},
			{Number: "101", Type: model.RoomSuite, Capacity: 4, Price: decimal.NewFromInt(400), Status: model.RoomAvailable, Floor: 2},
		})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		floor := 2
		list, err := rooms.List(ctx, repository.RoomFilter{Floor: &floor})
		require.NoError(t, err)
		assert.Empty(t, list, "bulk insert rolled back")

		require.NoError(t, rooms.UpdateStatus(ctx, rm.ID, model.RoomMaintenance))
		got, err := rooms.GetByID(ctx, rm.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoomMaintenance, got.Status)
		assert.Equal(t, []string{"wifi"}, got.Amenities)
		require.NoError(t, rooms.UpdateStatus(ctx, rm.ID, model.RoomAvailable))
	})

	t.Run("reservation lifecycle through the engine", func(t *testing.T) {
		list, err := rooms.List(ctx, repository.RoomFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, list)
		room := list[0]

		clock := day(3, 4)
		svc := service.NewReservationService(reservations, rooms, bills, lock.NewLocal(),
			service.WithClock(func() time.Time { return clock }))
		alice := service.Caller{ID: 1, Role: model.RoleCustomer}
		admin := service.Caller{ID: 99, Role: model.RoleAdmin}

		res, err := svc.Create(ctx, alice, service.CreateInput{
			RoomID: room.ID, CheckIn: day(3, 1), CheckOut: day(3, 3), Guests: 1,
			PaymentMethod: model.PaymentCreditCard, Card: &model.CardDetails{Last4: "4242", ExpMonth: 12, ExpYear: 2030},
		})
		require.NoError(t, err)
		assert.Equal(t, "300", res.TotalAmount.String())
		assert.Equal(t, "150", res.DepositAmount.String())

		_, err = svc.Create(ctx, alice, service.CreateInput{
			RoomID: room.ID, CheckIn: day(3, 2), CheckOut: day(3, 4), Guests: 1, PaymentMethod: model.PaymentCash,
		})
		assert.ErrorIs(t, err, service.ErrConflict)

		back, err := svc.Create(ctx, alice, service.CreateInput{
			RoomID: room.ID, CheckIn: day(3, 3), CheckOut: day(3, 5), Guests: 1, PaymentMethod: model.PaymentCash,
		})
		require.NoError(t, err, "back-to-back stays do not conflict")

		assert.ErrorIs(t, reservations.TransitionStatus(ctx, res.ID, model.StatusCheckedIn, model.StatusCheckedOut), repository.ErrStaleStatus)
		assert.ErrorIs(t, reservations.TransitionStatus(ctx, 424242, model.StatusConfirmed, model.StatusCancelled), repository.ErrNotFound)

		noShow := model.StatusNoShow
		_, err = svc.Update(ctx, admin, res.ID, service.UpdateInput{Status: &noShow})
		require.NoError(t, err)
		bill, err := bills.FindByReservation(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPartial, bill.PaymentStatus)

		sweep, err := svc.SweepNoShows(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sweep.Cancelled)
		got, err := reservations.GetByID(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)

		assert.ErrorIs(t, rooms.Delete(ctx, room.ID), repository.ErrConflict, "back-to-back stay still active")
		require.NoError(t, svc.Delete(ctx, admin, back.ID))
		mine, err := reservations.List(ctx, repository.ReservationFilter{CustomerID: &alice.ID})
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})
}
