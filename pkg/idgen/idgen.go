// Package idgen generates sortable identifiers for queue messages, where
// insertion order needs to be recoverable from the id itself.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID returns a new ULID: lexically sortable by creation time,
// with monotonic entropy so ids generated within the same millisecond
// still sort in call order.
func NewMessageID() string {
	mu.Lock()
	defer mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		panic(err)
	}
	return id.String()
}
