// Package decrypt wraps remote audio streams with on-the-fly AES-128-CTR
// decryption. Content without key material passes through untouched.
package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/javi11/trackmount/internal/stream"
)

// Compile-time interface check
var _ stream.SeekReader = (*Reader)(nil)

// audioIV is the fixed initial counter shared by all encrypted audio files.
var audioIV = []byte{
	0x72, 0xe0, 0x67, 0xfb, 0xdd, 0xcb, 0xcf, 0x77,
	0xeb, 0xe8, 0xbc, 0x64, 0x3f, 0x63, 0x0d, 0x93,
}

// Reader decrypts an underlying seekable stream with AES-128-CTR. Seeking is
// supported by recomputing the counter block from the absolute position.
// With a nil key it is an identity wrapper.
type Reader struct {
	src   stream.SeekReader
	block cipher.Block
	pos   int64
}

// NewReader wraps src with decryption under key. A nil or empty key yields a
// passthrough reader, which is the expected case for unencrypted content.
func NewReader(key []byte, src stream.SeekReader) (*Reader, error) {
	if len(key) == 0 {
		return &Reader{src: src}, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init audio cipher: %w", err)
	}

	return &Reader{src: src, block: block}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 && r.block != nil {
		r.keystream(r.pos).XORKeyStream(p[:n], p[:n])
	}
	r.pos += int64(n)
	return n, err
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.src.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	r.pos = pos
	return pos, nil
}

// keystream builds a CTR stream positioned at the absolute byte offset pos:
// the counter is advanced by pos/16 blocks and the first pos%16 keystream
// bytes are discarded.
func (r *Reader) keystream(pos int64) cipher.Stream {
	iv := make([]byte, aes.BlockSize)
	copy(iv, audioIV)
	addCounter(iv, uint64(pos)/aes.BlockSize)

	s := cipher.NewCTR(r.block, iv)

	if skip := pos % aes.BlockSize; skip > 0 {
		var scratch [aes.BlockSize]byte
		s.XORKeyStream(scratch[:skip], scratch[:skip])
	}
	return s
}

// addCounter adds n to the big-endian 128-bit counter in iv.
func addCounter(iv []byte, n uint64) {
	lo := binary.BigEndian.Uint64(iv[8:])
	hi := binary.BigEndian.Uint64(iv[:8])

	sum := lo + n
	if sum < lo {
		hi++
	}
	binary.BigEndian.PutUint64(iv[8:], sum)
	binary.BigEndian.PutUint64(iv[:8], hi)
}
