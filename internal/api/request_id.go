package api

import "github.com/google/uuid"

// newRequestID returns a fresh ID for the X-Request-ID header, letting
// server logs be correlated with client debug output.
func newRequestID() string {
	return uuid.NewString()
}
