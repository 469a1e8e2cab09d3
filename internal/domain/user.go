package domain

import "strings"

// User is the public identity of an authenticated user. It carries no secret material.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credential is a registration record as persisted by the auth store.
// The password is kept in plaintext and only ever compared locally.
type Credential struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Public strips the password from a credential record.
func (c Credential) Public() User {
	return User{Name: c.Name, Email: c.Email}
}

// SameEmail reports whether the two addresses are equal once lowercased.
// Unlike strings.EqualFold it does not treat case-folding variants such as
// final and medial sigma as equal.
func SameEmail(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}
