package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tws-core/internal/recorder"
	"tws-core/pkg/config"
	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

const (
	apiMagic = "API\x00"

	// The bootstrap drain gives up after this many frames if the session
	// messages never arrive.
	handshakeReadLimit = 100

	// Reconnect backoff is capped at this delay.
	maxBackoff = 30 * time.Second
)

type connectionState int32

const (
	stateDisconnected connectionState = iota
	stateHandshaking
	stateActive
	stateClosed
)

// Connection owns the TCP session to the gateway: dialing, the version
// handshake, framed reads and writes, pacing, and reconnection. It carries no
// routing knowledge; the message bus layers that on top.
type Connection struct {
	host                 string
	port                 int
	clientID             int
	dialTimeout          time.Duration
	readTimeout          time.Duration
	maxReconnectAttempts int

	limiter *rate.Limiter
	rec     *recorder.Recorder
	log     *zap.Logger

	state atomic.Int32

	// mu guards the socket pair across reconnects.
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	// infoMu guards the session metadata, which every handshake rewrites
	// while consumer goroutines read it.
	infoMu         sync.Mutex
	serverVersion  int
	connectionTime time.Time
	timeZone       *time.Location
	accountInfo    AccountInfo
}

// Dial connects, performs the handshake, and returns an active connection.
func Dial(cfg *config.Config, log *zap.Logger) (*Connection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Connection{
		host:                 cfg.Host,
		port:                 cfg.Port,
		clientID:             cfg.ClientID,
		dialTimeout:          cfg.ConnectTimeout,
		readTimeout:          cfg.ReadTimeout,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		rec:                  recorder.New(cfg.RecordDir, log),
		log:                  log,
	}
	if cfg.MessageRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MessageRate), 1)
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.state.Store(int32(stateHandshaking))

	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		c.state.Store(int32(stateDisconnected))
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		conn.Close()
		c.state.Store(int32(stateDisconnected))
		return err
	}

	c.state.Store(int32(stateActive))
	info := c.AccountInfo()
	c.log.Info("connected",
		zap.String("addr", addr),
		zap.Int("server_version", c.ServerVersion()),
		zap.Int("next_order_id", info.NextOrderID),
		zap.Strings("accounts", info.ManagedAccounts))
	return nil
}

// handshake runs the version negotiation and drains the session bootstrap
// messages before any reader goroutine exists, so there is no delivery race.
func (c *Connection) handshake() error {
	if _, err := c.conn.Write([]byte(apiMagic)); err != nil {
		return fmt.Errorf("send magic: %w", err)
	}
	versionRange := fmt.Sprintf("v%d..%d", protocol.MinClientVersion, protocol.MaxClientVersion)
	if err := wire.WriteFrame(c.conn, []byte(versionRange)); err != nil {
		return fmt.Errorf("send version range: %w", err)
	}

	payload, err := wire.ReadFrame(c.reader)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrServerRejectedConnection, err)
		}
		return fmt.Errorf("read server greeting: %w", err)
	}
	greeting := wire.NewResponseMessage(payload)
	version, err := greeting.NextInt()
	if err != nil {
		return fmt.Errorf("parse server version: %w", err)
	}
	if version < protocol.MinClientVersion {
		return &protocol.VersionError{
			Required: protocol.MinClientVersion,
			Actual:   version,
			Feature:  "session",
		}
	}
	serverTime, _ := greeting.NextString()
	connTime, tz := parseConnectionTime(serverTime, c.log)
	c.infoMu.Lock()
	c.serverVersion = version
	c.connectionTime, c.timeZone = connTime, tz
	c.infoMu.Unlock()

	if err := c.writeMessage(encodeStartAPI(version, c.clientID)); err != nil {
		return fmt.Errorf("start api: %w", err)
	}

	var info AccountInfo
	for i := 0; i < handshakeReadLimit && !info.complete(); i++ {
		payload, err := c.readFrame()
		if err != nil {
			return fmt.Errorf("session bootstrap: %w", err)
		}
		c.mergeBootstrap(&info, wire.NewResponseMessage(payload))
	}
	if !info.complete() {
		c.log.Warn("session bootstrap incomplete",
			zap.Bool("order_id", info.seenOrderID),
			zap.Bool("accounts", info.seenAccounts))
	}
	c.infoMu.Lock()
	c.accountInfo = info
	c.infoMu.Unlock()
	return nil
}

// mergeBootstrap folds one handshake-phase message into the accumulator.
// Unrelated traffic that arrives early is logged and dropped; it cannot be
// routed because no subscriptions exist yet.
func (c *Connection) mergeBootstrap(info *AccountInfo, msg *wire.ResponseMessage) {
	code, err := msg.PeekInt(0)
	if err != nil {
		c.log.Warn("unreadable bootstrap frame", zap.Error(err))
		return
	}
	switch protocol.IncomingFromCode(code) {
	case protocol.IncomingNextValidID:
		msg.Skip()
		msg.Skip()
		if id, err := msg.NextInt(); err == nil {
			info.NextOrderID = id
			info.seenOrderID = true
		}
	case protocol.IncomingManagedAccounts:
		msg.Skip()
		msg.Skip()
		if list, err := msg.NextString(); err == nil {
			info.ManagedAccounts = splitAccounts(list)
			info.seenAccounts = true
		}
	case protocol.IncomingErrorMessage:
		if text, err := msg.PeekString(4); err == nil {
			c.log.Warn("server notice during handshake", zap.String("message", text))
		}
	default:
		c.log.Debug("dropping early message", zap.Int("type", code))
	}
}

func splitAccounts(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// ReadMessage blocks for the next framed payload.
func (c *Connection) ReadMessage() ([]byte, error) {
	payload, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	c.rec.Response(payload)
	return payload, nil
}

func (c *Connection) readFrame() ([]byte, error) {
	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}
	if c.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return wire.ReadFrame(reader)
}

// WriteMessage encodes and sends one request, honoring the pacing limit.
func (c *Connection) WriteMessage(msg *wire.RequestMessage) error {
	if connectionState(c.state.Load()) != stateActive {
		return ErrNotConnected
	}
	return c.writeMessage(msg)
}

func (c *Connection) writeMessage(msg *wire.RequestMessage) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return err
		}
	}
	payload := msg.Encode()
	c.rec.Request(payload)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wire.WriteFrame(conn, payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Reconnect tears down the socket and retries the full dial-and-handshake
// sequence under a Fibonacci backoff, capped at maxBackoff per attempt.
func (c *Connection) Reconnect() error {
	if connectionState(c.state.Load()) == stateClosed {
		return ErrNotConnected
	}
	c.closeSocket()

	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		delay := backoffDelay(attempt)
		c.log.Info("reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
		time.Sleep(delay)

		if connectionState(c.state.Load()) == stateClosed {
			return ErrNotConnected
		}
		if err := c.connect(); err != nil {
			c.log.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return nil
	}
	c.state.Store(int32(stateDisconnected))
	return fmt.Errorf("%w: %d reconnect attempts exhausted", ErrConnectionFailed, c.maxReconnectAttempts)
}

func backoffDelay(attempt int) time.Duration {
	a, b := 1, 1
	for i := 2; i <= attempt; i++ {
		a, b = b, a+b
	}
	d := time.Duration(b) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Close shuts the session down for good. Reconnect refuses to run afterward.
func (c *Connection) Close() error {
	c.state.Store(int32(stateClosed))
	c.closeSocket()
	return nil
}

func (c *Connection) closeSocket() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// IsConnected reports whether the session is active.
func (c *Connection) IsConnected() bool {
	return connectionState(c.state.Load()) == stateActive
}

// ServerVersion returns the negotiated protocol version.
func (c *Connection) ServerVersion() int {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	return c.serverVersion
}

// ServerInfo describes the negotiated session.
func (c *Connection) ServerInfo() ServerInfo {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	return ServerInfo{
		Version:        c.serverVersion,
		ConnectionTime: c.connectionTime,
		TimeZone:       c.timeZone,
	}
}

// AccountInfo returns the values accumulated during the handshake.
func (c *Connection) AccountInfo() AccountInfo {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	return c.accountInfo
}
