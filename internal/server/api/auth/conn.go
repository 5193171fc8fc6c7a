package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Session packet framing: a 4-byte big-endian length covering nonce plus
// ciphertext, the 12-byte nonce, then the ciphertext. The write counter sits
// in the nonce's last 8 bytes, so packets cannot be replayed or reordered
// within a session.
const (
	lenHeaderSize = 4
	nonceSize     = chacha20poly1305.NonceSize
	maxPacketSize = 2 * 1024 * 1024 // 2 MB
)

var errBadPacket = errors.New("malformed session packet")

// Conn encrypts a net.Conn packet-wise with ChaCha20-Poly1305.
type Conn struct {
	net.Conn
	aead cipher.AEAD

	writeMu  sync.Mutex
	writeCtr uint64

	plain bytes.Buffer // decrypted bytes not yet consumed by Read
}

// WrapConn returns the connection wrapped with an encrypted session keyed by
// sessionKey (see DeriveSessionKey).
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead}, nil
}

// Write seals p into a single packet and writes it in one call, so concurrent
// writers cannot interleave fragments.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	pkt := make([]byte, lenHeaderSize+nonceSize, lenHeaderSize+nonceSize+len(p)+c.aead.Overhead())
	binary.BigEndian.PutUint64(pkt[lenHeaderSize+4:], c.writeCtr)
	c.writeCtr++

	pkt = c.aead.Seal(pkt, pkt[lenHeaderSize:lenHeaderSize+nonceSize], p, nil)
	binary.BigEndian.PutUint32(pkt[:lenHeaderSize], uint32(len(pkt)-lenHeaderSize))

	if _, err := c.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.plain.Len() == 0 {
		if err := c.readPacket(); err != nil {
			return 0, err
		}
	}
	return c.plain.Read(p)
}

// readPacket reads and decrypts one packet into the plaintext buffer.
func (c *Conn) readPacket() error {
	var hdr [lenHeaderSize]byte
	if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length < nonceSize || length > maxPacketSize {
		return errBadPacket
	}

	pkt := make([]byte, length)
	if _, err := io.ReadFull(c.Conn, pkt); err != nil {
		return err
	}

	pt, err := c.aead.Open(nil, pkt[:nonceSize], pkt[nonceSize:], nil)
	if err != nil {
		return err
	}
	c.plain.Write(pt)
	return nil
}
