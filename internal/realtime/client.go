package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/officehub/console/internal/ierr"
	"github.com/officehub/console/internal/notify"
	"go.uber.org/zap"
)

var ErrNotConnected = ierr.New(ierr.ErrorCodeNotConnected, errors.New("push channel not connected"))

// Notifier is the slice of the presenter the connection manager needs.
type Notifier interface {
	Show(title, message string, kind notify.Kind) string
}

// StatusIndicator receives connection state flips for the badge.
type StatusIndicator interface {
	Set(connected bool)
}

type Options struct {
	URL   string
	Token string

	Reconnection      bool
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	// ReconnectAttempts bounds retries; 0 means unlimited.
	ReconnectAttempts int
	HandshakeTimeout  time.Duration

	// AutoJoin rooms are joined on every successful (re)connect.
	AutoJoin []string
}

func DefaultOptions(url string) Options {
	return Options{
		URL:               url,
		Reconnection:      true,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 5 * time.Second,
		ReconnectAttempts: 0,
		HandshakeTimeout:  20 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = time.Second
	}
	if o.ReconnectDelayMax <= 0 {
		o.ReconnectDelayMax = 5 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 20 * time.Second
	}

	return o
}

// Client owns the single push-channel session for a page. It is
// constructed once, injected into every feature router, and never
// exposed as package state.
type Client struct {
	logger    *zap.Logger
	options   Options
	notifier  Notifier
	indicator StatusIndicator
	registry  *handlerRegistry

	mu               sync.Mutex
	ctx              context.Context
	conn             *websocket.Conn
	connected        bool
	initialized      bool
	closed           bool
	sessionId        string
	nextFrameId      int
	pending          map[int]chan Response
	joinedRooms      map[string]struct{}
	connectListeners []func(sessionId string)

	writeMu sync.Mutex
}

func NewClient(
	logger *zap.Logger,
	options Options,
	notifier Notifier,
	indicator StatusIndicator,
) *Client {
	return &Client{
		logger:      logger,
		options:     options.withDefaults(),
		notifier:    notifier,
		indicator:   indicator,
		registry:    newHandlerRegistry(),
		pending:     make(map[int]chan Response),
		joinedRooms: make(map[string]struct{}),
	}
}

// On registers handler for event. Registration is independent of
// connection state: handlers registered before the first connect fire
// once the event arrives, and reconnects never duplicate them.
func (c *Client) On(event string, handler Handler) {
	c.registry.add(event, handler)
}

// OnConnect registers fn to run after every successful (re)connect.
func (c *Client) OnConnect(fn func(sessionId string)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connectListeners = append(c.connectListeners, fn)

	// Late subscribers on an already-live session still get the signal.
	if c.connected {
		go fn(c.sessionId)
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Client) SessionId() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessionId
}

// Initialize opens the session and returns once the first connect
// succeeds. Dial failures are retried under the reconnect policy; the
// call fails only when the context ends or the attempt budget runs out.
// Calling Initialize on a live client is a no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.connectLoop(ctx); err != nil {
		c.mu.Lock()
		c.initialized = false
		c.mu.Unlock()

		return err
	}

	return nil
}

// Emit sends payload tagged with event over the live session. It never
// blocks on connection state and never queues: when the session is down
// it warns and reports ErrNotConnected.
func (c *Client) Emit(event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Warn("cannot emit, push channel not connected",
			zap.String("event", event))

		return ErrNotConnected
	}

	params, err := marshalParams(payload)
	if err != nil {
		return ierr.New(ierr.ErrorCodeInternal, err)
	}

	return c.write(conn, NewNotification(event, params))
}

// Request sends a reply-carrying frame and waits for the correlated
// response.
func (c *Client) Request(ctx context.Context, method string, payload any) (*json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextFrameId++
	id := c.nextFrameId
	reply := make(chan Response, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	params, err := marshalParams(payload)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeInternal, err)
	}

	err = c.write(conn, Frame{Id: id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	select {
	case response, ok := <-reply:
		if !ok {
			// The session dropped before the reply arrived.
			return nil, ErrNotConnected
		}
		if response.IsFailure() {
			return nil, *response.Error
		}
		return response.Result, nil
	case <-ctx.Done():
		return nil, ierr.New(ierr.ErrorCodeTimeout, ctx.Err())
	}
}

// Join subscribes the session to a server-side room. Joined rooms are
// replayed on reconnect, each exactly once.
func (c *Client) Join(ctx context.Context, room string) error {
	result, err := c.Request(ctx, MethodJoin, JoinParams{Room: room})
	if err != nil {
		return err
	}

	var joined JoinResult
	if result != nil {
		if err := json.Unmarshal(*result, &joined); err != nil {
			return ierr.New(ierr.ErrorCodeRequest, err)
		}
	}

	c.mu.Lock()
	c.joinedRooms[room] = struct{}{}
	c.mu.Unlock()

	c.logger.Debug("joined room", zap.String("room", room))

	return nil
}

// Close shuts the session down for good. A self-initiated close flips
// the indicator without a toast and suppresses reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	c.indicator.Set(false)

	if conn != nil {
		return conn.Close()
	}

	return nil
}

func (c *Client) connectLoop(ctx context.Context) error {
	delay := c.options.ReconnectDelay
	attempts := 0

	for {
		err := c.connectOnce(ctx)
		if err == nil {
			return nil
		}

		// A self-initiated close ends the loop without a toast.
		if c.isClosed() {
			return nil
		}

		c.notifyDialFailure(err)

		attempts++
		if !c.options.Reconnection {
			return err
		}
		if c.options.ReconnectAttempts > 0 && attempts >= c.options.ReconnectAttempts {
			c.logger.Error("reconnect attempts exhausted", zap.Error(err))
			return err
		}

		c.logger.Info("retrying push channel connection",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempts))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > c.options.ReconnectDelayMax {
			delay = c.options.ReconnectDelayMax
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ierr.New(ierr.ErrorCodeTransport, errors.New("client closed"))
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.options.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.options.URL, nil)
	if err != nil {
		return ierr.New(dialErrorCode(err), err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	sessionId, err := c.handshake(ctx)
	if err != nil {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		return err
	}

	c.mu.Lock()
	c.connected = true
	c.sessionId = sessionId
	listeners := make([]func(string), len(c.connectListeners))
	copy(listeners, c.connectListeners)
	rooms := make([]string, 0, len(c.joinedRooms))
	for room := range c.joinedRooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	c.logger.Info("push channel connected", zap.String("sessionId", sessionId))
	c.indicator.Set(true)

	// Liveness ping, fire-and-forget like the rest of the channel.
	if err := c.Emit(MethodHeartbeat, HeartbeatParams{
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		c.logger.Warn("heartbeat failed", zap.Error(err))
	}

	for _, room := range rooms {
		if err := c.Join(ctx, room); err != nil {
			c.logger.Warn("room rejoin failed",
				zap.String("room", room),
				zap.Error(err))
		}
	}

	for _, fn := range listeners {
		fn(sessionId)
	}

	return nil
}

func (c *Client) handshake(ctx context.Context) (string, error) {
	for _, room := range c.options.AutoJoin {
		c.mu.Lock()
		c.joinedRooms[room] = struct{}{}
		c.mu.Unlock()
	}

	if c.options.Token == "" {
		// Anonymous session, identity is local only.
		return gonanoid.Must(), nil
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, c.options.HandshakeTimeout)
	defer cancel()

	result, err := c.Request(handshakeCtx, MethodAuth, AuthParams{Token: c.options.Token})
	if err != nil {
		return "", err
	}

	var authResult AuthResult
	if result != nil {
		if err := json.Unmarshal(*result, &authResult); err != nil {
			return "", ierr.New(ierr.ErrorCodeRequest, err)
		}
	}
	if !authResult.Success {
		return "", ierr.New(ierr.ErrorCodeRequest, errors.New("authentication rejected"))
	}
	if authResult.SessionId == "" {
		authResult.SessionId = gonanoid.Must()
	}

	return authResult.SessionId, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch {
		case env.Method != "":
			var params json.RawMessage
			if env.Params != nil {
				params = *env.Params
			}

			handled := c.registry.dispatch(env.Method, params)
			c.logger.Debug("event dispatched",
				zap.String("event", env.Method),
				zap.Int("handlers", handled))
		case env.RequestId != 0:
			c.mu.Lock()
			reply, ok := c.pending[env.RequestId]
			c.mu.Unlock()

			if ok {
				reply <- Response{
					RequestId: env.RequestId,
					Result:    env.Result,
					Error:     env.Error,
				}
			}
		default:
			c.logger.Warn("unroutable frame received")
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// A stale read loop from a connection already replaced.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	closed := c.closed
	ctx := c.ctx
	for id, reply := range c.pending {
		delete(c.pending, id)
		close(reply)
	}
	c.mu.Unlock()

	conn.Close()

	if closed {
		return
	}

	c.logger.Warn("push channel disconnected", zap.Error(cause))
	c.indicator.Set(false)
	c.notifier.Show("Disconnected", "Real-time updates paused. Reconnecting...", notify.KindWarning)

	if !c.options.Reconnection {
		return
	}

	go func() {
		if err := c.connectLoop(ctx); err != nil {
			c.logger.Error("push channel reconnection failed", zap.Error(err))
		}
	}()
}

func (c *Client) write(conn *websocket.Conn, frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.WriteJSON(frame); err != nil {
		return ierr.New(ierr.ErrorCodeTransport, err)
	}

	return nil
}

func (c *Client) notifyDialFailure(err error) {
	if timeoutError(err) {
		c.notifier.Show("Connection Timeout", "Connection timed out. Will retry...", notify.KindWarning)
	} else {
		c.notifier.Show("Connection Error", "Failed to connect. Will retry...", notify.KindError)
	}
}

func dialErrorCode(err error) ierr.ErrorCode {
	if timeoutError(err) {
		return ierr.ErrorCodeTimeout
	}

	return ierr.ErrorCodeTransport
}

func timeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
