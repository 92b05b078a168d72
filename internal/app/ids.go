package app

import "github.com/google/uuid"

// newGameID returns a random UUIDv4 used as game identifier.
func newGameID() string {
    return uuid.NewString()
}
