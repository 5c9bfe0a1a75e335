// Package domain contains entity without logic, just meta-data
package domain

import "time"

// RoomID is the platform-assigned channel identifier. Opaque to us.
type RoomID string

type Room struct {
	ID        RoomID
	Name      string
	CreatedAt time.Time
}
