package auth_test

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/internal/server/api/auth"
)

func TestGenerateKey(t *testing.T) {
	key, err := auth.GenerateKey()
	assert.NoError(t, err)
	assert.Regexp(t, "^[0-9A-Za-z]{16}$", key)

	key2, err := auth.GenerateKey()
	assert.NoError(t, err)
	assert.NotEqual(t, key, key2)
}

func TestDeriveKey(t *testing.T) {
	key, err := auth.DeriveKey("password123")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Deterministic for the same password, distinct for a different one.
	again, err := auth.DeriveKey("password123")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	other, err := auth.DeriveKey("password124")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = auth.DeriveKey("")
	assert.EqualError(t, err, "password cannot be empty")
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}

	sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Len(t, sessionKey, 32)
	assert.Equal(t, sessionKey, auth.DeriveSessionKey(key, serverNonce, clientNonce))

	clientNonce[0] = 99
	assert.NotEqual(t, sessionKey, auth.DeriveSessionKey(key, serverNonce, clientNonce))
}

func TestIsHandshake(t *testing.T) {
	type testCase struct {
		name        string
		input       []byte
		expected    bool
		expectedErr bool
	}

	testCases := []testCase{
		{
			name:     "handshake magic",
			input:    []byte(auth.HandshakeMagic),
			expected: true,
		},
		{
			name:     "plaintext request",
			input:    []byte("status \x00"),
			expected: false,
		},
		{
			name:        "incomplete prefix",
			input:       []byte("rP"),
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.IsHandshake(bufio.NewReader(bytes.NewReader(tc.input)))
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

// clientHello builds the wire bytes ClientHandshake would send for the given
// key and nonce.
func clientHello(key, nonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("replaypad-auth-v1"))
	mac.Write(nonce)
	msg := append([]byte(auth.HandshakeMagic), nonce...)
	return append(msg, mac.Sum(nil)...)
}

func TestServerHandshake(t *testing.T) {
	validKey, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	wrongKey, err := auth.DeriveKey("wrongpass")
	require.NoError(t, err)

	nonce := make([]byte, auth.NonceSize)
	for i := range nonce {
		nonce[i] = byte(i)
	}

	type testCase struct {
		name         string
		input        []byte
		key          []byte
		expectedErr  string
		unauthorized bool
	}

	testCases := []testCase{
		{
			name:  "valid proof",
			input: clientHello(validKey, nonce),
			key:   validKey,
		},
		{
			name:         "wrong password",
			input:        clientHello(validKey, nonce),
			key:          wrongKey,
			unauthorized: true,
		},
		{
			name:        "truncated nonce",
			input:       append([]byte(auth.HandshakeMagic), []byte("short")...),
			key:         validKey,
			expectedErr: "read client nonce: unexpected EOF",
		},
		{
			name:        "truncated magic",
			input:       []byte("rP"),
			key:         validKey,
			expectedErr: "discard handshake magic: EOF",
		},
		{
			name:        "missing proof",
			input:       append([]byte(auth.HandshakeMagic), nonce...),
			key:         validKey,
			expectedErr: "read client proof: EOF",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			clientNonce, serverNonce, err := auth.ServerHandshake(
				bufio.NewReader(bytes.NewReader(tc.input)), &out, tc.key)

			if tc.unauthorized {
				var apiErr *apitypes.ApiError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, 401, apiErr.Status)
				return
			}
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, nonce, clientNonce)
			assert.Len(t, serverNonce, auth.NonceSize)
			resp := out.Bytes()
			require.Len(t, resp, 3+auth.NonceSize)
			assert.Equal(t, "OK\x00", string(resp[:3]))
			assert.Equal(t, serverNonce, resp[3:])
		})
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	key, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	type result struct {
		clientNonce []byte
		serverNonce []byte
		err         error
	}
	serverDone := make(chan result, 1)
	go func() {
		cn, sn, err := auth.ServerHandshake(bufio.NewReader(serverConn), serverConn, key)
		serverDone <- result{cn, sn, err}
	}()

	clientNonce, serverNonce, err := auth.ClientHandshake(bufio.NewReader(clientConn), clientConn, key)
	require.NoError(t, err)

	srv := <-serverDone
	require.NoError(t, srv.err)
	assert.Equal(t, clientNonce, srv.clientNonce)
	assert.Equal(t, serverNonce, srv.serverNonce)

	// Both ends derive the same session key.
	assert.Equal(t,
		auth.DeriveSessionKey(key, serverNonce, clientNonce),
		auth.DeriveSessionKey(key, srv.serverNonce, srv.clientNonce))
}

func TestClientHandshakeRejection(t *testing.T) {
	key, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)

	// A server that answers with a problem document instead of "OK\x00".
	rejection := `{"status":401,"title":"Unauthorized","detail":"invalid password"}` + "\n"
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	go func() {
		buf := make([]byte, 1024)
		_, _ = serverConn.Read(buf)
		_, _ = serverConn.Write([]byte(rejection))
		serverConn.Close()
	}()

	_, _, err = auth.ClientHandshake(bufio.NewReader(clientConn), clientConn, key)
	var apiErr *apitypes.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "invalid password", apiErr.Detail)
}
