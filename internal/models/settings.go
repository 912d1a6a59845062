package models

import "time"

// Settings is the school-profile singleton: read and replaced wholesale.
type Settings struct {
	ID        int       `db:"id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
