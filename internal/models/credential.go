package models

import "time"

// Credential is one row of the external credential store. Rows are written
// exclusively by the operator tooling; the gateway only ever reads them.
type Credential struct {
	Token     string     `db:"token" json:"-"`
	OwnerID   string     `db:"owner_id" json:"owner_id"`
	OwnerName string     `db:"owner_name" json:"owner_name"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Valid reports whether the row carries the fields the cache needs.
// Rows missing either are skipped during a refresh, not treated as fatal.
func (c Credential) Valid() bool {
	return c.Token != "" && c.OwnerID != ""
}
