package serve

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weft-ui/weft/pkg/protocol"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithSessionConfig overrides the per-session defaults.
func WithSessionConfig(config SessionConfig) ServerOption {
	return func(s *Server) { s.sessionConfig = config }
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// Server accepts websocket connections and runs one weft session per
// client: the app renders into a private in-memory document and committed
// mutations stream back as binary frames.
type Server struct {
	app           App
	logger        *slog.Logger
	upgrader      websocket.Upgrader
	sessionConfig SessionConfig

	mu       sync.Mutex
	sessions map[string]*Session
	expiry   map[string]*time.Timer
}

// NewServer creates a server for app.
func NewServer(app App, opts ...ServerOption) *Server {
	s := &Server{
		app:           app,
		logger:        slog.Default(),
		sessionConfig: DefaultSessionConfig(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*Session),
		expiry:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP routes: the websocket endpoint, Prometheus
// metrics, and a health check.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

// SessionCount reports live sessions, attached or detached.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// HandleWebSocket upgrades the connection, performs the hello exchange, and
// runs the session's read loop until the client goes away.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Error("hello read failed", "err", err)
		conn.Close()
		return
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHello {
		s.rejectHello(conn, protocol.HelloInvalidFormat)
		return
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		s.rejectHello(conn, protocol.HelloInvalidFormat)
		return
	}
	if hello.Version.Major != protocol.CurrentVersion.Major {
		s.rejectHello(conn, protocol.HelloVersionMismatch)
		return
	}

	session, resumed := s.resumeSession(hello.SessionID)
	if session == nil {
		session, err = s.createSession()
		if err != nil {
			s.logger.Error("session create failed", "err", err)
			s.rejectHello(conn, protocol.HelloInternalError)
			return
		}
	}
	session.attach(conn)

	reply := &protocol.ServerHello{
		Status:    protocol.HelloOK,
		SessionID: session.ID(),
		NextSeq:   session.seq + 1,
	}
	if !resumed {
		reply.HTML = SerializeSubtree(session.Document().Body())
	}
	helloFrame := protocol.NewFrame(protocol.FrameHello, protocol.EncodeServerHello(reply))
	if err := session.writeFrame(conn, helloFrame); err != nil {
		s.logger.Error("hello write failed", "err", err)
		session.detach()
		return
	}

	s.logger.Info("session connected", "session", session.ID(), "resumed", resumed)
	session.ReadLoop(conn)
	session.detach()
	s.scheduleExpiry(session)
}

func (s *Server) createSession() (*Session, error) {
	id := newSessionID()
	session, err := newSession(id, s.app, s.sessionConfig, s.logger)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	go session.pingLoop()
	return session, nil
}

// resumeSession returns a detached session for id if it is still within its
// resume window.
func (s *Server) resumeSession(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if timer, ok := s.expiry[id]; ok {
		timer.Stop()
		delete(s.expiry, id)
	}
	return session, true
}

// scheduleExpiry closes a detached session after the resume window.
func (s *Server) scheduleExpiry(session *Session) {
	window := s.sessionConfig.ResumeWindow
	if window <= 0 {
		s.dropSession(session)
		return
	}
	s.mu.Lock()
	s.expiry[session.ID()] = time.AfterFunc(window, func() {
		s.dropSession(session)
	})
	s.mu.Unlock()
}

func (s *Server) dropSession(session *Session) {
	s.mu.Lock()
	delete(s.sessions, session.ID())
	delete(s.expiry, session.ID())
	s.mu.Unlock()
	session.Close()
	s.logger.Info("session closed", "session", session.ID())
}

func (s *Server) rejectHello(conn *websocket.Conn, status protocol.HelloStatus) {
	reply := &protocol.ServerHello{Status: status}
	frame := protocol.NewFrame(protocol.FrameHello, protocol.EncodeServerHello(reply))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	conn.Close()
}

// Shutdown closes every session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()
	for _, session := range sessions {
		s.dropSession(session)
	}
}

func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
