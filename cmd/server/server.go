package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	mandukyadb "github.com/nickyhof/MandukyaDB"
	"github.com/nickyhof/MandukyaDB/db"
)

// Server is a TCP SQL server that exposes one MandukyaDB handle. Clients
// send one statement per line and receive one JSON response per line.
// Statements from all connections are serialized by the handle.
type Server struct {
	listener   net.Listener
	db         *mandukyadb.DB
	authConfig *AuthConfig
	tlsEnabled bool
	logger     *slog.Logger
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server without authentication.
func NewServer(handle *mandukyadb.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:     handle,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires a JWT per connection
// when authConfig is enabled.
func NewServerWithAuth(handle *mandukyadb.DB, authConfig *AuthConfig, logger *slog.Logger) *Server {
	s := NewServer(handle, logger)
	s.authConfig = authConfig
	return s
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("SQL server listening", "addr", listener.Addr().String())

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening for TLS connections using the given key pair.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	s.logger.Info("SQL server listening", "addr", listener.Addr().String(), "tls", true)

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits for open connections to finish.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("Accept error", "error", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("Client connected", "remote", remote)

	// Unblock the read below when the server stops
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.done:
			conn.SetReadDeadline(time.Now())
		case <-closed:
		}
	}()

	reader := bufio.NewReader(conn)
	state := &ConnectionState{}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && !errors.Is(err, os.ErrDeadlineExceeded) {
				s.logger.Warn("Read error", "remote", remote, "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			s.logger.Debug("Client disconnected", "remote", remote)
			return
		}

		response := s.handleLine(line, state)

		data, err := EncodeResponse(response)
		if err != nil {
			s.logger.Error("Failed to encode response", "error", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			s.logger.Warn("Write error", "remote", remote, "error", err)
			return
		}
	}
}

func (s *Server) handleLine(line string, state *ConnectionState) db.Response {
	if isAuthCommand(line) {
		return s.handleAuth(line, state)
	}

	if s.authRequired() && !state.IsAuthenticated(time.Now()) {
		return db.Response{
			Success: false,
			Type:    "error",
			Error:   "authentication required: send AUTH JWT <token>",
		}
	}

	req, err := DecodeRequest(line)
	if err != nil {
		return db.Response{
			Success: false,
			Type:    "error",
			Error:   fmt.Sprintf("invalid request: %v", err),
		}
	}

	return s.executeQuery(req.Query, state.Subject())
}

func (s *Server) executeQuery(query, subject string) db.Response {
	result, err := s.db.Execute(query)
	if err != nil {
		s.logger.Debug("Statement failed", "subject", subject, "error", err)
		return db.ErrorResponse("error", err)
	}
	return db.NewResponse(result)
}
