// Package api implements the TCP control API: null-terminated
// "<path> <payload>" requests answered with a single JSON line, plus
// long-lived streams for change notifications.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/internal/server/api/auth"
)

// Server exposes an Engine over a small TCP API.
type Server struct {
	eng    *engine.Engine
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config ServerConfig
}

// New creates a new control API server bound to an Engine instance.
func New(eng *engine.Engine, config ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		eng:    eng,
		addr:   config.Addr,
		logger: logger,
		config: config,
	}
	s.router = NewRouter()
	return s
}

// Router returns the router used by the server so callers can register
// handlers.
func (s *Server) Router() *Router { return s.router }

// Engine returns the underlying playback engine.
func (s *Server) Engine() *engine.Engine { return s.eng }

// Config returns the server configuration.
func (s *Server) Config() ServerConfig { return s.config }

// Start listens on the configured address and serves incoming API commands.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("control API listening", "addr", s.addr)
	go s.serve()
	return nil
}

// Addr returns the bound listener address; useful when the configured port
// was 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Close stops the API server.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("control API stopped")
				return
			}
			s.logger.Info("control API accept error", "error", err)
			return
		}
		go s.handleConn(c)
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	problemJSON, _ := json.Marshal(WrapError(err))
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (s *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	var w io.Writer = conn

	// When a password is set, every connection must open with the auth
	// handshake; the rest of the session is encrypted.
	if s.config.Password != "" {
		isAuth, err := auth.IsHandshake(r)
		if err != nil {
			connLogger.Error("peek handshake", "error", err)
			return
		}
		if !isAuth {
			s.writeError(w, ErrUnauthorized("authentication required"))
			return
		}
		key, err := auth.DeriveKey(s.config.Password)
		if err != nil {
			connLogger.Error("derive key", "error", err)
			return
		}
		clientNonce, serverNonce, err := auth.ServerHandshake(r, conn, key)
		if err != nil {
			connLogger.Error("auth handshake failed", "error", err)
			s.writeError(w, err)
			return
		}
		sec, err := auth.WrapConn(conn, auth.DeriveSessionKey(key, serverNonce, clientNonce))
		if err != nil {
			connLogger.Error("wrap session", "error", err)
			return
		}
		conn = sec
		r = bufio.NewReader(conn)
		w = conn
	}

	// Read until null terminator
	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("api incomplete request (no null terminator)")
		} else {
			connLogger.Error("read api data", "error", err)
		}
		return
	}
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("api empty command")
		s.writeError(w, ErrBadRequest("empty request"))
		return
	}

	// Split on first whitespace character: the payload may itself contain
	// whitespace and newlines (CSV tables, pretty JSON).
	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)

	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
	}

	if path == "" {
		connLogger.Error("api empty path")
		s.writeError(w, ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("api cmd", "path", path)

	if h, params := s.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("api handler error", "path", path, "error", err)
			s.writeError(w, err)
			return
		}
		connLogger.Debug("api handler success", "path", path)
		s.writeOK(w, res.JSON)
		return
	}
	if sh, _ := s.router.MatchStream(path); sh != nil {
		connLogger.Info("api stream begin", "path", path)
		// Stream handler takes ownership of the connection.
		if err := sh(conn, connLogger); err != nil {
			connLogger.Error("api stream handler error", "path", path, "error", err)
		}
		connLogger.Info("api stream end", "path", path)
		return
	}

	connLogger.Error("api unknown path", "path", path)
	s.writeError(w, ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}
