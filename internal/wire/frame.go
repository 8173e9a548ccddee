// ABOUTME: Wire record framing for indexed compressed frames
// ABOUTME: Serializes frames as a big-endian index prefix followed by the opaque payload
package wire

import (
	"encoding/binary"
	"fmt"
)

// IndexSize is the length of the index prefix on every wire record.
const IndexSize = 4

// Frame serializes an indexed payload as be32(index) || payload. There
// is no length field or checksum: the transport delivers whole records
// and supplies integrity.
func Frame(index uint32, payload []byte) []byte {
	record := make([]byte, IndexSize+len(payload))
	binary.BigEndian.PutUint32(record, index)
	copy(record[IndexSize:], payload)
	return record
}

// Deframe parses a wire record back into its index and payload. The
// payload is copied, never aliased: transports reuse their receive
// buffers between records.
func Deframe(record []byte) (uint32, []byte, error) {
	if len(record) < IndexSize {
		return 0, nil, fmt.Errorf("wire record too short: %d bytes", len(record))
	}

	index := binary.BigEndian.Uint32(record)
	payload := make([]byte, len(record)-IndexSize)
	copy(payload, record[IndexSize:])
	return index, payload, nil
}
