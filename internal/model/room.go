package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// RoomType is the category of a room.
type RoomType string

const (
    RoomStandard    RoomType = "standard"
    RoomDeluxe      RoomType = "deluxe"
    RoomSuite       RoomType = "suite"
    RoomResidential RoomType = "residential"
)

// ParseRoomType validates a raw room type string.
func ParseRoomType(s string) (RoomType, bool) {
    switch RoomType(s) {
    case RoomStandard, RoomDeluxe, RoomSuite, RoomResidential:
        return RoomType(s), true
    }
    return "", false
}

// RoomStatus is the cached availability of a room.  It follows the most
// recent reservation transition that touched the room; it is not the
// source of truth for date conflicts.
type RoomStatus string

const (
    RoomAvailable   RoomStatus = "available"
    RoomOccupied    RoomStatus = "occupied"
    RoomMaintenance RoomStatus = "maintenance"
    RoomReserved    RoomStatus = "reserved"
)

// ParseRoomStatus validates a raw room status string.
func ParseRoomStatus(s string) (RoomStatus, bool) {
    switch RoomStatus(s) {
    case RoomAvailable, RoomOccupied, RoomMaintenance, RoomReserved:
        return RoomStatus(s), true
    }
    return "", false
}

// Room represents a row in the `rooms` table.
type Room struct {
    ID        uint64          `json:"id"`        // rooms.id
    Number    string          `json:"number"`    // rooms.number (unique)
    Type      RoomType        `json:"type"`      // rooms.type
    Capacity  int             `json:"capacity"`  // rooms.capacity
    Price     decimal.Decimal `json:"price"`     // rooms.price (per night)
    Amenities []string        `json:"amenities"` // rooms.amenities (JSON array)
    Status    RoomStatus      `json:"status"`    // rooms.status
    Floor     int             `json:"floor"`     // rooms.floor
    CreatedAt time.Time       `json:"createdAt"` // rooms.created_at
    UpdatedAt time.Time       `json:"updatedAt"` // rooms.updated_at
}
