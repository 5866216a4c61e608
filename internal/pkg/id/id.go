package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which gives notification and job-run keys a free chronological
// ordering in range queries.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
