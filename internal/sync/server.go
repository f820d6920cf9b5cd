package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Server is the TCP line feed. A client may send a subscribe line at any
// time to narrow what it receives; other input is ignored.
type Server struct {
	Addr   string
	Hub    *Hub
	Logger *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Addr: addr, Hub: hub, Logger: logger.With(slog.String("component", "tcp-sync"))}
}

func (s *Server) Run() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.Logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return ln, nil
}

// Serve accepts clients until the listener is closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}

		s.Hub.Welcome(conn)
		s.Hub.Add(conn)
		s.Logger.Info("client connected", slog.String("remote", conn.RemoteAddr().String()))

		go s.handle(conn)
	}
}

func (s *Server) handle(c net.Conn) {
	defer func() {
		s.Hub.Remove(c)
		s.Logger.Info("client disconnected", slog.String("remote", c.RemoteAddr().String()))
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		var msg SubscribeMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil || msg.Type != SubscribeMessageType {
			continue
		}
		s.Hub.Subscribe(c, msg.Topics)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
