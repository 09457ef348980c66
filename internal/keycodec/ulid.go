package keycodec

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// crockford is the Crockford base32 alphabet (no I, L, O, U) used to render
// a sortable identifier without visually ambiguous characters.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewPrimaryKey allocates a 26-character lexicographically sortable
// identifier: a 48-bit millisecond timestamp followed by 80 bits of
// randomness, both packed into 16 bytes and rendered as Crockford base32
// (spec.md §3.5's default primary-key generator). Generation happens
// entirely locally; no server round trip is involved.
func NewPrimaryKey() string {
	var buf [16]byte
	putTimestamp(buf[:6], time.Now())
	if _, err := rand.Read(buf[6:]); err != nil {
		// crypto/rand failing means the platform's entropy source is
		// broken; there's no sane fallback that preserves sortability.
		panic("keycodec: crypto/rand unavailable: " + err.Error())
	}
	return encode(buf)
}

func putTimestamp(dst []byte, t time.Time) {
	ms := uint64(t.UnixMilli())
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], ms)
	copy(dst, tmp[2:]) // low 48 bits
}

// encode renders 16 bytes (128 bits) as 26 Crockford base32 characters,
// the standard ULID layout: 130 bits of output with the top 2 bits of the
// first character always zero.
func encode(b [16]byte) string {
	var out [26]byte

	out[0] = crockford[(b[0]&224)>>5]
	out[1] = crockford[b[0]&31]
	out[2] = crockford[(b[1]&248)>>3]
	out[3] = crockford[((b[1]&7)<<2)|((b[2]&192)>>6)]
	out[4] = crockford[(b[2]&62)>>1]
	out[5] = crockford[((b[2]&1)<<4)|((b[3]&240)>>4)]
	out[6] = crockford[((b[3]&15)<<1)|((b[4]&128)>>7)]
	out[7] = crockford[(b[4]&124)>>2]
	out[8] = crockford[((b[4]&3)<<3)|((b[5]&224)>>5)]
	out[9] = crockford[b[5]&31]

	out[10] = crockford[(b[6]&248)>>3]
	out[11] = crockford[((b[6]&7)<<2)|((b[7]&192)>>6)]
	out[12] = crockford[(b[7]&62)>>1]
	out[13] = crockford[((b[7]&1)<<4)|((b[8]&240)>>4)]
	out[14] = crockford[((b[8]&15)<<1)|((b[9]&128)>>7)]
	out[15] = crockford[(b[9]&124)>>2]
	out[16] = crockford[((b[9]&3)<<3)|((b[10]&224)>>5)]
	out[17] = crockford[b[10]&31]

	out[18] = crockford[(b[11]&248)>>3]
	out[19] = crockford[((b[11]&7)<<2)|((b[12]&192)>>6)]
	out[20] = crockford[(b[12]&62)>>1]
	out[21] = crockford[((b[12]&1)<<4)|((b[13]&240)>>4)]
	out[22] = crockford[((b[13]&15)<<1)|((b[14]&128)>>7)]
	out[23] = crockford[(b[14]&124)>>2]
	out[24] = crockford[((b[14]&3)<<3)|((b[15]&224)>>5)]
	out[25] = crockford[b[15]&31]

	return string(out[:])
}
