// Package models holds the server-side persistence models.
package models

// Account is a credentialed principal. The ID is assigned by the store;
// Email is unique case-insensitively and immutable after creation.
// PasswordHash is a self-describing argon2id hash string.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
}
