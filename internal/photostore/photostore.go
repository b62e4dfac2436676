// Package photostore persists submitted check-in photos behind an explicit
// storage abstraction, keyed so that two submissions can never collide.
package photostore

import "context"

// Store saves and removes check-in photos.
type Store interface {
	// Save writes the photo and returns its storage path.
	Save(ctx context.Context, sessionID, regNo string, photo []byte) (string, error)
	// Remove deletes a previously stored photo. Used for best-effort
	// cleanup when the attendance row insert fails after the file write.
	Remove(ctx context.Context, path string) error
}
