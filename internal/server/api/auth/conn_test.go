package auth_test

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaypad/replaypad/internal/server/api/auth"
)

func sessionPair(t *testing.T, clientKey, serverKey []byte) (client, server net.Conn) {
	t.Helper()
	rawClient, rawServer := net.Pipe()
	t.Cleanup(func() {
		rawClient.Close()
		rawServer.Close()
	})
	client, err := auth.WrapConn(rawClient, clientKey)
	require.NoError(t, err)
	server, err = auth.WrapConn(rawServer, serverKey)
	require.NoError(t, err)
	return client, server
}

func TestConnRoundTrip(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	client, server := sessionPair(t, key, key)

	msg := []byte("status \x00")
	go func() {
		_, _ = client.Write(msg)
	}()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf)
}

func TestConnPartialReads(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	client, server := sessionPair(t, key, key)

	msg := bytes.Repeat([]byte("abcdefgh"), 512)
	go func() {
		_, _ = client.Write(msg)
	}()

	// Drain in small chunks; one encrypted packet spans many Read calls.
	var got []byte
	buf := make([]byte, 100)
	for len(got) < len(msg) {
		n, err := server.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, msg, got)
}

func TestConnDifferingKeys(t *testing.T) {
	clientKey, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	serverKey, err := auth.DeriveKey("123test")
	require.NoError(t, err)
	client, server := sessionPair(t, clientKey, serverKey)

	go func() {
		_, _ = client.Write([]byte("x"))
	}()

	_, err = server.Read(make([]byte, 1))
	assert.ErrorContains(t, err, "message authentication failed")
}

func TestWrapConnBadKeyLength(t *testing.T) {
	rawClient, rawServer := net.Pipe()
	defer rawClient.Close()
	defer rawServer.Close()

	_, err := auth.WrapConn(rawClient, []byte{1, 2, 3})
	assert.ErrorContains(t, err, "bad key length")
}

func TestConnClosedPeer(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	client, server := sessionPair(t, key, key)

	require.NoError(t, client.Close())
	_, err = server.Read(make([]byte, 1))
	assert.Error(t, err)
}
