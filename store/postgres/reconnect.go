package postgres

import (
	"context"
	"log"
	"strings"
	"time"
)

// ReconnectWithRetry repeatedly attempts Connect with exponential backoff
// (capped at 60s), giving up after maxRetries attempts (0 = infinite).
// Adapted from the teacher's internal/db reconnection loop.
func ReconnectWithRetry(dsn string, maxOpen, maxIdle, maxRetries int, initialDelay time.Duration) (*Store, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		log.Printf("postgres: connection attempt %d...", attempt)

		store, err := Connect(dsn, maxOpen, maxIdle)
		if err == nil {
			return store, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			log.Printf("postgres: failed to connect after %d attempts", attempt)
			return nil, err
		}

		log.Printf("postgres: connect failed: %v (retry in %s)", err, delay)
		time.Sleep(delay)

		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// EnsureConnection pings store and transparently reconnects if the
// connection has gone stale.
func EnsureConnection(store *Store, dsn string, maxOpen, maxIdle int) (*Store, error) {
	if store == nil {
		log.Println("postgres: connection is nil, reconnecting...")
		return ReconnectWithRetry(dsn, maxOpen, maxIdle, 3, time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.PingContext(ctx); err != nil {
		log.Printf("postgres: connection lost: %v, reconnecting...", err)
		store.Close()
		return ReconnectWithRetry(dsn, maxOpen, maxIdle, 3, time.Second)
	}
	return store, nil
}

// connErrorSubstrings are the patterns WithRetry treats as transient and
// worth retrying, versus a permanent failure (bad SQL, constraint
// violation) that retrying won't fix.
var connErrorSubstrings = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"eof",
	"timeout",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connErrorSubstrings {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// WithRetry runs operation, retrying up to maxRetries times with linear
// backoff when the failure looks like a transient connection error. Any
// other error returns immediately.
func WithRetry(operation func() error, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isConnectionError(err) {
			return err
		}
		if attempt < maxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("postgres: operation failed (attempt %d/%d): %v (retry in %s)",
				attempt+1, maxRetries+1, err, wait)
			time.Sleep(wait)
		}
	}
	return lastErr
}
