package gelf

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// GELF chunked-mode wire format, big-endian byte layout:
//
// +--------+--------+-------------------+----------+----------+
// |      0 |      1 |              2-9  |       10 |       11 |
// +--------+--------+-------------------+----------+----------+
// |     1E |     0F |     message id    | sequence |    count |
// +--------+--------+-------------------+----------+----------+
// |  magic |  magic | 64-bit integer BE |  1 byte  |  1 byte  |
// +--------+--------+-------------------+----------+----------+
//
// followed by up to 500 payload bytes, so every datagram stays within 512
// bytes. Larger UDP datagrams are nominally legal but unreliable across
// typical intranet routers, which is why the cap is 512 and not ~64KB.

const (
	// maxDatagramSize caps every emitted datagram, chunked or not.
	maxDatagramSize = 512

	// chunkHeaderSize is the fixed per-fragment header: 2 magic bytes, the
	// 8-byte message id, 1 sequence byte, 1 count byte.
	chunkHeaderSize = 12

	// maxChunkBody is the payload budget of one fragment.
	maxChunkBody = maxDatagramSize - chunkHeaderSize

	// maxChunkCount is the protocol ceiling imposed by the 1-byte count
	// field.
	maxChunkCount = 255
)

var chunkMagic = [2]byte{0x1e, 0x0f}

// chunkHeader is the fixed 12-byte fragment header.
type chunkHeader struct {
	messageID uint64
	seq       byte
	count     byte
}

// append encodes the header onto dst in wire order.
func (h chunkHeader) append(dst []byte) []byte {
	dst = append(dst, chunkMagic[0], chunkMagic[1])
	dst = binary.BigEndian.AppendUint64(dst, h.messageID)
	return append(dst, h.seq, h.count)
}

// messageID derives the fragment-correlation id for a payload. The id only
// has to be deterministic and well-distributed so the receiver can group
// fragments; it carries no integrity guarantee.
func messageID(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}

// datagrams splits an encoded payload into the UDP datagrams to emit.
//
// A payload within maxDatagramSize is shipped verbatim as a single unframed
// datagram. Anything larger is split into ceil(len/maxChunkBody) framed
// fragments sharing one message id, sequenced 0..count-1 in payload order.
// A payload too large for the 1-byte count field is an explicit error; the
// alternative (letting the count wrap) would emit fragments no receiver can
// ever reassemble.
func datagrams(payload []byte) ([][]byte, error) {
	if len(payload) <= maxDatagramSize {
		return [][]byte{payload}, nil
	}

	count := (len(payload) + maxChunkBody - 1) / maxChunkBody
	if count > maxChunkCount {
		return nil, fmt.Errorf("payload of %d bytes needs %d chunks, exceeding the protocol maximum of %d",
			len(payload), count, maxChunkCount)
	}

	id := messageID(payload)

	out := make([][]byte, 0, count)
	for seq := 0; seq < count; seq++ {
		lo := seq * maxChunkBody
		hi := min(lo+maxChunkBody, len(payload))

		h := chunkHeader{messageID: id, seq: byte(seq), count: byte(count)}
		d := make([]byte, 0, chunkHeaderSize+(hi-lo))
		d = h.append(d)
		d = append(d, payload[lo:hi]...)

		out = append(out, d)
	}

	return out, nil
}
