// Package space implements password-protected rooms and their membership.
//
// A Space has a unique name, an owner and a hashed join password. Users
// become members by presenting that password. The Service applies the
// membership rules on top of a Repository with a SQLite implementation.
//
// # Thread Safety
//
// Service and SQLiteRepository are safe for concurrent use. Name uniqueness
// and membership uniqueness are enforced by the schema, so two racing
// requests cannot create duplicates.
package space
