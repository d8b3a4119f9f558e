// Package matchid generates sortable, URL-safe match identifiers.
package matchid

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"io"
	"time"
)

// Crockford base32: no padding, no ambiguous characters, sorts in creation
// order because the alphabet is ascending.
var encoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

var reader io.Reader = rand.Reader

// New returns a 26-character match identifier: 48 bits of millisecond
// timestamp followed by 80 random bits. IDs created later sort later, and
// the random tail makes collisions within one millisecond implausible.
func New(now time.Time) string {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[:8], uint64(now.UnixMilli())<<16)
	if _, err := io.ReadFull(reader, raw[6:]); err != nil {
		panic("failed to read crypto/rand: " + err.Error())
	}
	return encoding.EncodeToString(raw[:])
}
