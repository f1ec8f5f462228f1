package users

import "time"

// User is the stable identity every other record is keyed by.
//
// Username is unique and never changes; the core only mutates last_seen
// (and, on re-registration, display_name). Hard deletion is an external
// admin concern.

type User struct {
	ID          string    `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	DeviceType  string    `json:"device_type" db:"device_type"`
	LastSeen    time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Registration is the outcome of RegisterOrUpdate.
type Registration struct {
	User      User `json:"user"`
	IsNewUser bool `json:"is_new_user"`
}
