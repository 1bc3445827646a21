// Package queue carries reservation lifecycle events over RabbitMQ: the
// publisher used by the reservation service and the background consumer
// that keeps an audit trail in logs/reservation.log.
package queue

// ReservationQueue is the durable queue every reservation event goes to.
const ReservationQueue = "reservation.events"

// Event types.
const (
    EventCreated    = "reservation.created"
    EventUpdated    = "reservation.updated"
    EventCancelled  = "reservation.cancelled"
    EventCheckedIn  = "reservation.checked_in"
    EventCheckedOut = "reservation.checked_out"
    EventNoShow     = "reservation.no_show"
    EventDeleted    = "reservation.deleted"
)

// ReservationEvent is published after a reservation changes.  It carries
// enough context for consumers to log or notify without querying the
// primary database.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    RoomID        uint64 `json:"room_id"`
    CustomerID    uint64 `json:"customer_id"`
    FromStatus    string `json:"from_status,omitempty"`
    ToStatus      string `json:"to_status"`
    ActorID       uint64 `json:"actor_id,omitempty"` // 0 for the scheduler
    ActorRole     string `json:"actor_role,omitempty"`
    CheckIn       string `json:"check_in"`
    CheckOut      string `json:"check_out"`
    TotalAmount   string `json:"total_amount"`
    OccurredAt    string `json:"occurred_at"`
}
