package database

import "errors"

// ErrSessionNotOpen is returned by CloseSession when the session does not exist
// or already has a time-out.
var ErrSessionNotOpen = errors.New("attendance session is not open")
