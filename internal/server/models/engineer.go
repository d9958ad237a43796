// Package models holds the persisted records and read models of the voting
// service.
package models

import "time"

// Engineer is a roster entry. Credential fields stay empty until the engineer
// registers. Entries are never hard-deleted.
type Engineer struct {
	ID              int64     `json:"id,string"`
	Colegiado       string    `json:"colegiado"`
	Nombre          string    `json:"nombre"`
	Activo          bool      `json:"activo"`
	Email           *string   `json:"email"`
	DPI             *string   `json:"dpi,omitempty"`
	FechaNacimiento *string   `json:"fechaNacimiento,omitempty"`
	PasswordHash    *string   `json:"-"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasCredential reports whether a password has been set.
func (e *Engineer) HasCredential() bool {
	return e.PasswordHash != nil && *e.PasswordHash != ""
}

// RosterRecord is one incoming roster row. Nil optional fields never
// overwrite stored values.
type RosterRecord struct {
	Colegiado       string
	Nombre          string
	Activo          bool
	DPI             *string
	FechaNacimiento *string
	Email           *string
}

// Credentials are the fields written by a successful registration.
type Credentials struct {
	Email           string
	DPI             string
	FechaNacimiento string
	PasswordHash    string
}

// EngineerPatch is a partial update; nil fields are left untouched.
type EngineerPatch struct {
	Nombre       *string
	Email        *string
	Activo       *bool
	PasswordHash *string
}

// Empty reports whether the patch changes nothing.
func (p *EngineerPatch) Empty() bool {
	return p.Nombre == nil && p.Email == nil && p.Activo == nil && p.PasswordHash == nil
}

// EngineerFilter narrows roster listings.
type EngineerFilter struct {
	Query  string
	Activo *bool
	Limit  int
}

// EngineerOption is the compact form used by candidate pickers.
type EngineerOption struct {
	ID        int64  `json:"id,string"`
	Colegiado string `json:"colegiado"`
	Nombre    string `json:"nombre"`
}

// RosterStatus tells a prospective registrant where they stand.
type RosterStatus struct {
	ExistsInRoster bool `json:"existsInRoster"`
	Active         bool `json:"active"`
	HasAccount     bool `json:"hasAccount"`
}

// RosterDiagnostics summarises the roster for administrators.
type RosterDiagnostics struct {
	Total  int               `json:"total"`
	Active int               `json:"activos"`
	Admins int               `json:"admins"`
	Sample []*EngineerOption `json:"muestra"`
}
