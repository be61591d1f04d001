// Package pushtest provides an in-process push-channel server for tests.
// It speaks the same envelope as the production broadcaster: auth, join,
// heartbeat, and server-pushed event frames.
package pushtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/officehub/console/internal/auth"
	"github.com/officehub/console/internal/ierr"
	"github.com/officehub/console/internal/realtime"
	"go.uber.org/zap"
)

type connection struct {
	id      string
	session *auth.Session
	send    chan any
}

// Server is a broadcaster double. Tests push domain events into rooms
// with Broadcast and can sever live connections to exercise the
// client's reconnect path.
type Server struct {
	logger   *zap.Logger
	verifier *auth.Verifier
	upgrader *websocket.Upgrader
	server   *httptest.Server

	mu          sync.Mutex
	connections map[string]*connection
	rooms       map[string]map[string]struct{}
	sockets     map[string]*websocket.Conn
	received    []realtime.Frame
}

// NewServer starts the double. An empty secret disables token checks so
// anonymous clients can connect.
func NewServer(logger *zap.Logger, secret string) *Server {
	s := &Server{
		logger:      logger,
		upgrader:    &websocket.Upgrader{},
		connections: make(map[string]*connection),
		rooms:       make(map[string]map[string]struct{}),
		sockets:     make(map[string]*websocket.Conn),
	}
	if secret != "" {
		s.verifier = auth.NewVerifier(secret)
	}

	router := mux.NewRouter()
	s.register(router)
	s.server = httptest.NewServer(router)

	return s
}

// URL returns the websocket endpoint for dialing.
func (s *Server) URL() string {
	u, _ := url.Parse(s.server.URL)
	u.Scheme = "ws"
	u.Path = "/websocket"

	return u.String()
}

func (s *Server) Close() {
	s.mu.Lock()
	sockets := make([]*websocket.Conn, 0, len(s.sockets))
	for _, socket := range s.sockets {
		sockets = append(sockets, socket)
	}
	s.mu.Unlock()

	for _, socket := range sockets {
		socket.Close()
	}
	s.server.Close()
}

// Broadcast pushes one event to every connection joined to room.
func (s *Server) Broadcast(room, event string, payload any) {
	rawJson, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("unmarshalable broadcast payload", zap.Error(err))
		return
	}
	params := json.RawMessage(rawJson)

	frame := realtime.Frame{Method: event, Params: &params}

	s.mu.Lock()
	defer s.mu.Unlock()

	for connectionId := range s.rooms[room] {
		if conn, ok := s.connections[connectionId]; ok {
			select {
			case conn.send <- frame:
			default:
				s.logger.Warn("send channel full, dropping frame",
					zap.String("connectionId", connectionId))
			}
		}
	}
}

// DropConnections severs every live socket server-side, simulating an
// unexpected disconnect.
func (s *Server) DropConnections() {
	s.mu.Lock()
	sockets := make([]*websocket.Conn, 0, len(s.sockets))
	for _, socket := range s.sockets {
		sockets = append(sockets, socket)
	}
	s.mu.Unlock()

	for _, socket := range sockets {
		socket.Close()
	}
}

// ConnectionCount reports the number of live sessions.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.connections)
}

// RoomCount reports how many sessions are joined to room.
func (s *Server) RoomCount(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rooms[room])
}

// Received returns the notification frames clients emitted, in arrival
// order.
func (s *Server) Received() []realtime.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make([]realtime.Frame, len(s.received))
	copy(frames, s.received)

	return frames
}

// ReceivedMethods returns just the method names of Received.
func (s *Server) ReceivedMethods() []string {
	frames := s.Received()

	methods := make([]string, len(frames))
	for i, frame := range frames {
		methods[i] = frame.Method
	}

	return methods
}

func (s *Server) register(router *mux.Router) {
	router.HandleFunc("/websocket", func(w http.ResponseWriter, r *http.Request) {
		socket, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("upgrade failed", zap.Error(err))
			return
		}

		conn := &connection{
			id:   gonanoid.Must(),
			send: make(chan any, 16),
		}

		s.mu.Lock()
		s.connections[conn.id] = conn
		s.sockets[conn.id] = socket
		s.mu.Unlock()

		go s.writePump(socket, conn)
		s.readPump(socket, conn)
	})
}

func (s *Server) writePump(socket *websocket.Conn, conn *connection) {
	for frame := range conn.send {
		if err := socket.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (s *Server) readPump(socket *websocket.Conn, conn *connection) {
	defer s.disconnect(conn)

	for {
		var frame realtime.Frame
		if err := socket.ReadJSON(&frame); err != nil {
			return
		}

		s.route(conn, frame)
	}
}

func (s *Server) route(conn *connection, frame realtime.Frame) {
	if !frame.ReplyExpected() {
		s.mu.Lock()
		s.received = append(s.received, frame)
		s.mu.Unlock()

		if frame.Method == realtime.MethodHeartbeat {
			s.reply(conn, realtime.Frame{Method: "pong_server"}, nil)
		}

		return
	}

	result, err := s.handle(conn, frame)
	if err != nil {
		var coded ierr.Error
		if !errors.As(err, &coded) {
			coded = ierr.New(ierr.ErrorCodeInternal, err)
		}
		s.respond(conn, realtime.Response{RequestId: frame.Id, Error: &coded})

		return
	}

	rawJson, err := json.Marshal(result)
	if err != nil {
		coded := ierr.New(ierr.ErrorCodeInternal, err)
		s.respond(conn, realtime.Response{RequestId: frame.Id, Error: &coded})

		return
	}

	payload := json.RawMessage(rawJson)
	s.respond(conn, realtime.Response{RequestId: frame.Id, Result: &payload})
}

func (s *Server) handle(conn *connection, frame realtime.Frame) (any, error) {
	switch frame.Method {
	case realtime.MethodHeartbeat:
		return map[string]any{"timestamp": time.Now().Format(time.RFC3339)}, nil
	case realtime.MethodAuth:
		var params realtime.AuthParams
		if err := decodeParams(frame.Params, &params); err != nil {
			return nil, err
		}

		if s.verifier != nil {
			session, err := s.verifier.Verify(params.Token)
			if err != nil {
				return nil, err
			}
			conn.session = session
		}

		return realtime.AuthResult{Success: true, SessionId: conn.id}, nil
	case realtime.MethodJoin:
		var params realtime.JoinParams
		if err := decodeParams(frame.Params, &params); err != nil {
			return nil, err
		}

		if s.verifier != nil && (conn.session == nil || !conn.session.CanJoin(params.Room)) {
			return nil, ierr.New(ierr.ErrorCodeValidation,
				errors.New("not authorized for room "+params.Room))
		}

		s.mu.Lock()
		if _, ok := s.rooms[params.Room]; !ok {
			s.rooms[params.Room] = make(map[string]struct{})
		}
		s.rooms[params.Room][conn.id] = struct{}{}
		s.mu.Unlock()

		return realtime.JoinResult{Room: params.Room, SessionId: conn.id}, nil
	default:
		return nil, ierr.New(ierr.ErrorCodeRequest,
			errors.New("method not found: "+frame.Method))
	}
}

func (s *Server) reply(conn *connection, frame realtime.Frame, _ error) {
	select {
	case conn.send <- frame:
	default:
	}
}

func (s *Server) respond(conn *connection, response realtime.Response) {
	select {
	case conn.send <- response:
	default:
	}
}

func (s *Server) disconnect(conn *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connections[conn.id]; !ok {
		return
	}

	delete(s.connections, conn.id)
	delete(s.sockets, conn.id)
	for room, members := range s.rooms {
		delete(members, conn.id)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
	close(conn.send)
}

func decodeParams(params *json.RawMessage, v any) error {
	if params == nil {
		return ierr.New(ierr.ErrorCodeValidation, errors.New("missing params"))
	}

	if err := json.Unmarshal(*params, v); err != nil {
		return ierr.New(ierr.ErrorCodeValidation, errors.New("invalid params: "+err.Error()))
	}

	return nil
}
