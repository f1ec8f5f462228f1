package contacts

import "time"

// Contact is one directed edge in a user's contact list. Edges are not
// mirrored: alice adding bob says nothing about bob's list.
type Contact struct {
	UserID        string    `json:"user_id" db:"user_id"`
	ContactUserID string    `json:"contact_user_id" db:"contact_user_id"`
	IsFavorite    bool      `json:"is_favorite" db:"is_favorite"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Entry is a contact decorated with its profile and live presence, the
// shape the TV client renders.
type Entry struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	DeviceType  string `json:"device_type"`
	IsFavorite  bool   `json:"is_favorite"`
	Online      bool   `json:"online"`
}
