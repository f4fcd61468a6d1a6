package user

import "errors"

var ErrUserNotFound = errors.New("user not found")

// Patch lists the fields an upsert changes. Nil fields are left as they are.
type Patch struct {
	Name         *string
	Username     *string
	Town         *string
	Phone        *string
	Workplace    *string
	VerifierName *string
	Verified     *bool
}

// DBUser is the row shape of the users table.
type DBUser struct {
	ChatID       int64  `db:"chat_id"`
	Name         string `db:"name"`
	Username     string `db:"username"`
	Town         string `db:"town"`
	Phone        string `db:"phone"`
	Workplace    string `db:"workplace"`
	VerifierName string `db:"verifier_name"`
	Verified     bool   `db:"verified"`
}
