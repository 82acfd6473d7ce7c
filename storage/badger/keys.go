package badger

import (
	"encoding/binary"

	"github.com/poiesic/chronicler/core"
)

// Key prefixes for different data types
const (
	episodeRecordPrefix = "epirec"
	episodeStatusPrefix = "epistat"
)

// makeEpisodeKey generates a key for a ledger entry by ID.
// IDs are written in BigEndian order so iteration over the record prefix
// visits episodes in a stable numeric order.
func makeEpisodeKey(id core.ID) []byte {
	prefix := episodeRecordPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeStatusKey generates a composite key for the status index.
// Format: prefix:status:id
func makeStatusKey(status core.Status, id core.ID) []byte {
	prefix := episodeStatusPrefix + ":"
	buf := make([]byte, len(prefix)+1+8)
	offset := copy(buf, prefix)
	buf[offset] = byte(status)
	offset++
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialStatusKey generates a partial key for scanning one status.
// Format: prefix:status
func makePartialStatusKey(status core.Status) []byte {
	prefix := episodeStatusPrefix + ":"
	buf := make([]byte, len(prefix)+1)
	offset := copy(buf, prefix)
	buf[offset] = byte(status)
	return buf
}
