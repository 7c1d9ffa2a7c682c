// Package simulator implements an in-process gateway good enough to exercise
// the full client stack over real TCP: handshake, session bootstrap, and
// scripted responses per request type.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

const apiMagic = "API\x00"

// Handler reacts to one client request. The session is safe to write from
// other goroutines, so handlers may spawn delayed or streaming responses.
type Handler func(s *Session, msg *wire.ResponseMessage)

// Server is a fake gateway listening on a loopback port.
type Server struct {
	ServerVersion int
	ServerTime    string
	NextOrderID   int
	Accounts      string

	log      *zap.Logger
	listener net.Listener

	mu       sync.Mutex
	handlers map[protocol.Outgoing]Handler
	sessions []*Session
	closed   bool
	wg       sync.WaitGroup
}

// New creates a server with plausible defaults. Call Start to listen.
func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ServerVersion: 176,
		ServerTime:    "20260830 10:00:00 EST",
		NextOrderID:   90,
		Accounts:      "DU1234567,DU7654321",
		log:           log,
		handlers:      make(map[protocol.Outgoing]Handler),
	}
}

// Handle registers the handler for one request type, replacing any previous
// registration.
func (s *Server) Handle(out protocol.Outgoing, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[out] = fn
}

// Start begins listening on an ephemeral loopback port.
func (s *Server) Start() error {
	return s.StartAddr("127.0.0.1:0")
}

// StartAddr begins listening on the given address.
func (s *Server) StartAddr(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the listening host.
func (s *Server) Addr() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Close stops the listener and all live sessions.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := append([]*Session(nil), s.sessions...)
	s.mu.Unlock()

	s.listener.Close()
	for _, sess := range sessions {
		sess.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		sess := &Session{ID: uuid.NewString(), srv: s, conn: conn}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.sessions = append(s.sessions, sess)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run()
		}()
	}
}

// Sessions returns the currently accepted sessions.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session(nil), s.sessions...)
}

// CurrentTimeHandler answers clock requests with the wall clock.
func CurrentTimeHandler() Handler {
	return func(s *Session, _ *wire.ResponseMessage) {
		s.Send("49", "1", strconv.FormatInt(time.Now().Unix(), 10))
	}
}

// Session is one accepted client connection.
type Session struct {
	ID string

	srv  *Server
	conn net.Conn

	writeMu sync.Mutex
	once    sync.Once

	// ClientID is populated once the session start request arrives.
	ClientID int
}

// Close drops the connection.
func (s *Session) Close() {
	s.once.Do(func() { s.conn.Close() })
}

// Send writes one framed message built from the given fields.
func (s *Session) Send(fields ...string) error {
	var payload []byte
	for _, f := range fields {
		payload = append(payload, f...)
		payload = append(payload, 0)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wire.WriteFrame(s.conn, payload)
}

// SendError writes a server error frame for the given request id.
func (s *Session) SendError(requestID, code int, text string) error {
	return s.Send("4", "2", strconv.Itoa(requestID), strconv.Itoa(code), text)
}

// SendShutdown tells the client to stop reading.
func (s *Session) SendShutdown() error {
	return s.Send("-2")
}

func (s *Session) run() {
	defer s.Close()
	if err := s.handshake(); err != nil {
		s.srv.log.Debug("handshake aborted", zap.Error(err))
		return
	}
	for {
		payload, err := wire.ReadFrame(s.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.srv.log.Debug("session read failed", zap.Error(err))
			}
			return
		}
		s.dispatch(wire.NewResponseMessage(payload))
	}
}

func (s *Session) handshake() error {
	s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer s.conn.SetReadDeadline(time.Time{})

	magic := make([]byte, len(apiMagic))
	if _, err := io.ReadFull(s.conn, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != apiMagic {
		return fmt.Errorf("bad magic %q", magic)
	}
	if _, err := wire.ReadFrame(s.conn); err != nil {
		return fmt.Errorf("read version range: %w", err)
	}
	return s.Send(strconv.Itoa(s.srv.ServerVersion), s.srv.ServerTime)
}

func (s *Session) dispatch(msg *wire.ResponseMessage) {
	code, err := msg.PeekInt(0)
	if err != nil {
		s.srv.log.Debug("unreadable request", zap.Error(err))
		return
	}
	out := protocol.Outgoing(code)

	if out == protocol.OutgoingStartAPI {
		if id, err := msg.PeekInt(2); err == nil {
			s.ClientID = id
		}
		s.Send("9", "1", strconv.Itoa(s.srv.NextOrderID))
		s.Send("15", "1", s.srv.Accounts)
		return
	}

	s.srv.mu.Lock()
	fn, ok := s.srv.handlers[out]
	s.srv.mu.Unlock()
	if !ok {
		s.srv.log.Debug("unhandled request", zap.Stringer("type", out))
		return
	}
	fn(s, msg)
}
