package comments

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ID identifies a comment. Server-assigned IDs are positive integers in
// Remote. Comments created locally and not yet confirmed carry a Local
// token instead, so a pending comment can never collide with a real one.
// The zero ID is invalid.
type ID struct {
	Remote int64
	Local  string
}

// RemoteID wraps a server-assigned identifier.
func RemoteID(n int64) ID { return ID{Remote: n} }

// NewLocalID mints a pending identifier for a not-yet-confirmed comment.
func NewLocalID() ID { return ID{Local: uuid.NewString()} }

// Pending reports whether the ID is a local placeholder.
func (id ID) Pending() bool { return id.Remote == 0 && id.Local != "" }

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id.Remote == 0 && id.Local == "" }

func (id ID) String() string {
	if id.Pending() {
		return "local:" + id.Local
	}
	return fmt.Sprintf("%d", id.Remote)
}

// IDMap remembers which server ID a local placeholder resolved to, so code
// holding a reference to "the comment I just created" keeps working after
// reconciliation swaps the ID out.
type IDMap struct {
	mu sync.Mutex
	m  map[string]int64
}

func NewIDMap() *IDMap {
	return &IDMap{m: make(map[string]int64)}
}

// Record maps a local token to its confirmed server ID.
func (im *IDMap) Record(local string, remote int64) {
	if local == "" || remote == 0 {
		return
	}
	im.mu.Lock()
	im.m[local] = remote
	im.mu.Unlock()
}

// Resolve returns the confirmed form of id if a mapping exists, otherwise
// id unchanged.
func (im *IDMap) Resolve(id ID) ID {
	if !id.Pending() {
		return id
	}
	im.mu.Lock()
	remote, ok := im.m[id.Local]
	im.mu.Unlock()
	if !ok {
		return id
	}
	return RemoteID(remote)
}
