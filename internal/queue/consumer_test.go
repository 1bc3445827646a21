package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
    line := FormatLine(ReservationEvent{
        Type: EventCheckedIn, ReservationID: 7, RoomID: 101, CustomerID: 3,
        FromStatus: "confirmed", ToStatus: "checked-in", ActorID: 2, ActorRole: "clerk",
        CheckIn: "2024-03-01", CheckOut: "2024-03-03", TotalAmount: "300", OccurredAt: "2024-03-01T14:00:00Z",
    })
    assert.Equal(t, "[2024-03-01T14:00:00Z] reservation.checked_in | reservation_id=7 | room_id=101 | customer_id=3 | status=confirmed->checked-in | stay=2024-03-01..2024-03-03 | total=300 | by=clerk#2\n", line)

    sweep := FormatLine(ReservationEvent{Type: EventCancelled, ToStatus: "cancelled"})
    assert.Contains(t, sweep, "status=-->cancelled")
    assert.Contains(t, sweep, "by=scheduler")
}

func TestHandleAppendsLines(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    c := NewConsumer("amqp://unused", dir, zerolog.Nop())

    for _, id := range []uint64{1, 2} {
        body, err := json.Marshal(ReservationEvent{Type: EventCreated, ReservationID: id, ToStatus: "confirmed"})
        require.NoError(t, err)
        require.NoError(t, c.handle(body))
    }

    data, err := os.ReadFile(filepath.Join(dir, "reservation.log"))
    require.NoError(t, err)
    assert.Contains(t, string(data), "reservation_id=1 ")
    assert.Contains(t, string(data), "reservation_id=2 ")
}

func TestHandleRejectsGarbage(t *testing.T) {
    c := NewConsumer("amqp://unused", t.TempDir(), zerolog.Nop())
    assert.Error(t, c.handle([]byte("{not json")))
}
