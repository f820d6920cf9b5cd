package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"bookreviews/pkg/models"
)

const (
	RegisterMessageType         = "register"
	FeedbackReceivedMessageType = "feedback_received"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// FeedbackReceivedMessage is sent to a review's author when feedback lands
// on it.
type FeedbackReceivedMessage struct {
	Type        string              `json:"type"`
	ReviewID    string              `json:"review_id"`
	ReviewTitle string              `json:"review_title"`
	FeedbackID  string              `json:"feedback_id"`
	Kind        models.FeedbackType `json:"kind"`
	From        string              `json:"from"`
	At          time.Time           `json:"at"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Server keeps a registry of UDP clients keyed by user id and pushes
// best-effort datagrams to them.
type Server struct {
	addr     string
	registry *Registry
	logger   *slog.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Server{addr: addr, registry: registry, logger: logger.With(slog.String("component", "udp-notify"))}
}

func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info("listening", slog.String("addr", conn.LocalAddr().String()))
	return nil
}

func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve reads register messages until the socket is closed.
func (s *Server) Serve() error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return errors.New("udp notify: not listening")
	}

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Warn("invalid UDP message", slog.String("from", addr.String()), slog.String("error", err.Error()))
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.logger.Info("registered UDP client", slog.String("user_id", msg.UserID), slog.String("addr", addr.String()))
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// NotifyFeedback sends a feedback_received datagram to ownerID if that user
// has registered. Unregistered owners are skipped silently.
func (s *Server) NotifyFeedback(ctx context.Context, ownerID string, f models.Feedback, reviewTitle string) {
	client, ok := s.registry.Lookup(ownerID)
	if !ok {
		return
	}
	payload, err := json.Marshal(FeedbackReceivedMessage{
		Type:        FeedbackReceivedMessageType,
		ReviewID:    f.ReviewID,
		ReviewTitle: reviewTitle,
		FeedbackID:  f.ID,
		Kind:        f.Type,
		From:        f.UserName,
		At:          f.CreatedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal notification", slog.String("error", err.Error()))
		return
	}
	s.sendWithRetry(ctx, client, payload)
}

func (s *Server) sendWithRetry(ctx context.Context, client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to notify user",
			slog.String("user_id", client.UserID),
			slog.String("addr", client.Addr.String()),
			slog.String("error", err.Error()),
		)
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return errors.New("udp notify server not running")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
