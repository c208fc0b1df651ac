package contxt

import (
	"context"
	"os"
	"time"
)

// WithTimeout returns a background context bounded by timeout. Setting
// CONTEXT_TEST disables the deadline so tests can step through sink calls.
func WithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
