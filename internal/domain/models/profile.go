// internal/domain/models/profile.go
package models

import "time"

// ProfilesTable is the table (or collection) holding application profiles.
const ProfilesTable = "users"

// Profile is the application-side record that mirrors an identity-provider
// account. ID is the provider's principal id, so the two line up 1:1.
//
// LastLogin is written best-effort on every successful sign-in.
type Profile struct {
	ID        string     `bson:"_id" json:"id"`
	Email     string     `bson:"email" json:"email"`
	Name      string     `bson:"name" json:"name"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
}
