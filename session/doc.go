// Package session implements the persistence context of a unit of work: an
// identity map and change tracker over Bun models that flushes every staged
// insert, update and delete in one transaction.
//
// A Session is not safe for concurrent use. Entities must be Bun models with
// exactly one integer primary key.
package session
