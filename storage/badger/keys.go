package badger

import (
	"encoding/binary"

	"github.com/poiesic/docent/core"
)

// Key prefixes for different data types
const (
	unitRecordPrefix = "unitrec:"
	unitPoolPrefix   = "unitpool:"
	turnPrefix       = "turn:"
	turnIDSeq        = "turnseq"
	manifestPrefix   = "manifest:"
)

// sessionSeparator ends the session ID inside a turn key.
// Session IDs therefore may not contain a NUL byte.
const sessionSeparator = 0x00

// makeUnitKey generates the primary key for a content unit.
// Format: prefix + id
func makeUnitKey(id core.ID) []byte {
	buf := make([]byte, len(unitRecordPrefix)+8)
	offset := copy(buf, unitRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialUnitPoolKey generates the prefix shared by all pool index keys of a pool.
// Format: prefix + pool
func makePartialUnitPoolKey(pool core.Pool) []byte {
	buf := make([]byte, len(unitPoolPrefix)+1)
	offset := copy(buf, unitPoolPrefix)
	buf[offset] = byte(pool)
	return buf
}

// makeUnitPoolKey generates a composite key for the pool index.
// Format: prefix + pool + id, so a prefix scan yields ascending IDs.
func makeUnitPoolKey(pool core.Pool, id core.ID) []byte {
	partial := makePartialUnitPoolKey(pool)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTurnKey generates the prefix shared by all turns of a session.
// Format: prefix + sessionID + separator
func makePartialTurnKey(sessionID string) []byte {
	buf := make([]byte, len(turnPrefix)+len(sessionID)+1)
	offset := copy(buf, turnPrefix)
	offset += copy(buf[offset:], sessionID)
	buf[offset] = sessionSeparator
	return buf
}

// makeTurnKey generates a composite key for a turn.
// Format: prefix + sessionID + separator + id. Turn IDs come from a
// monotonic sequence, so keys of a session sort in append order.
func makeTurnKey(sessionID string, id core.ID) []byte {
	partial := makePartialTurnKey(sessionID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// sessionFromTurnKey extracts the session ID from a turn key.
func sessionFromTurnKey(key []byte) (string, bool) {
	if len(key) < len(turnPrefix)+9 {
		return "", false
	}
	return string(key[len(turnPrefix) : len(key)-9]), true
}

// makeManifestKey generates a key for a pool's index manifest.
func makeManifestKey(pool core.Pool) []byte {
	return append([]byte(manifestPrefix), byte(pool))
}
