package types

import "time"

// User is both a login account and a transfer endpoint: every non-admin user
// represents one physical location.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Location     string    `db:"location" json:"location"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UserRef is the subset of user fields exposed alongside a transfer.
type UserRef struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Location string `db:"location" json:"location"`
}

// Principal identifies the authenticated caller for permission checks.
type Principal struct {
	ID      string
	IsAdmin bool
}

// Session is the payload encrypted into the session cookie.
type Session struct {
	UserID  string    `json:"userId"`
	Expires time.Time `json:"expires"`
}
