// Package model defines the data structures used throughout the application.
//
// JSON tags follow the wire names the existing web clients already send and
// read (nombre, correo, ...). Go field names stay in English.
package model

import "time"

// Account represents a registered user.
//
// Email is the login identifier. It is unique across all accounts and compared
// case-sensitively, exactly as stored.
//
// PasswordHash is tagged `json:"-"` so no JSON read path can ever surface it,
// whichever handler serialises the account.
type Account struct {
	ID           string    `json:"_id"`
	Name         string    `json:"nombre"`
	Email        string    `json:"correo"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"telefono"`
	Address      string    `json:"direccion"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AccountSummary is the owner projection embedded in product reads.
type AccountSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"nombre"`
	Email string `json:"correo"`
	Phone string `json:"telefono,omitempty"`
}

// Summary projects the account onto its public identity fields.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone}
}

// SessionAccount is the account block of a login response. Login clients read
// "id", not "_id".
type SessionAccount struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"correo"`
}

func (a *Account) Session() SessionAccount {
	return SessionAccount{ID: a.ID, Name: a.Name, Email: a.Email}
}

// AccountPatch carries a partial account update. Nil fields are left unchanged.
// Password is plaintext; the service hashes it before it reaches a repository.
type AccountPatch struct {
	Name     *string `json:"nombre"`
	Email    *string `json:"correo"`
	Password *string `json:"contraseña"`
	Phone    *string `json:"telefono"`
	Address  *string `json:"direccion"`
}
