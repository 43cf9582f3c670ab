// Package oddsfeed retrieves trifecta market odds over HTTP and WebSocket.
package oddsfeed

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned while the HTTP circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrStaleOdds is returned when the freshest odds are older than the configured maximum age.
	ErrStaleOdds = errors.New("odds are stale")
	// ErrNotConnected is returned when the stream is used before Connect.
	ErrNotConnected = errors.New("not connected to odds stream")
)

// Feed error codes
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeBadPayload   = "BAD_PAYLOAD"
)

// FeedError describes a failed odds request.
type FeedError struct {
	Code       string
	StatusCode int
	RaceID     string
	Message    string
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("odds feed %s for race %s (status %d): %s", e.Code, e.RaceID, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a feed error for an unknown race
func IsNotFound(err error) bool {
	var fe *FeedError
	return errors.As(err, &fe) && fe.Code == CodeNotFound
}
