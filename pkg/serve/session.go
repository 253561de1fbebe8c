package serve

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/protocol"
	"github.com/weft-ui/weft/pkg/weft"
)

// App builds one user's root against a fresh document. Called once per
// session; the returned root is mounted by the server.
type App func(doc *memhost.Document, backend *memhost.Backend) (*weft.Root, error)

// Session is one connected client: a private document, backend, and root,
// plus the websocket the committed mutations stream over.
type Session struct {
	id       string
	logger   *slog.Logger
	config   SessionConfig
	doc      *memhost.Document
	backend  *memhost.Backend
	root     *weft.Root
	registry *NodeRegistry

	mu      sync.Mutex
	conn    *websocket.Conn
	pending []protocol.Mutation
	seq     uint64

	closeOnce sync.Once
	done      chan struct{}
}

// SessionConfig bounds one session's connection behavior.
type SessionConfig struct {
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	ResumeWindow   time.Duration
}

// DefaultSessionConfig returns the defaults the server starts from.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		ResumeWindow:   time.Minute,
	}
}

func newSession(id string, app App, config SessionConfig, logger *slog.Logger) (*Session, error) {
	s := &Session{
		id:       id,
		logger:   logger.With("session", id),
		config:   config,
		doc:      memhost.NewDocument(),
		registry: NewNodeRegistry(),
		done:     make(chan struct{}),
	}
	s.backend = memhost.New(s.doc)

	root, err := app(s.doc, s.backend)
	if err != nil {
		return nil, fmt.Errorf("serve: building app: %w", err)
	}
	s.root = root

	// Mount before installing the write observer: the initial tree travels
	// as HTML in the server hello, not as mutations.
	if err := root.Mount(); err != nil {
		return nil, fmt.Errorf("serve: mounting root: %w", err)
	}
	s.backend.RunCallbacks()
	s.doc.ResetLog()
	s.registry.RegisterSubtree(s.doc.Body())
	s.doc.OnWrite(s.onWrite)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Document returns the session's document.
func (s *Session) Document() *memhost.Document { return s.doc }

// attach binds a connection to the session. Any previous connection is
// closed.
func (s *Session) attach(conn *websocket.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	if conn != nil {
		conn.SetReadLimit(s.config.MaxMessageSize)
	}
}

// detach drops the connection, keeping session state for resume.
func (s *Session) detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// onWrite translates one committed host write into a wire mutation. It runs
// synchronously inside the commit, so parents and siblings reflect the
// position the write produced.
func (s *Session) onWrite(w memhost.Write) {
	m := protocol.Mutation{Phase: uint8(w.Phase)}

	switch w.Op {
	case memhost.OpSetAttr:
		m.Op = protocol.MutSetAttr
		m.Node = s.registry.ID(w.Node)
		m.Name = w.Name
		m.Value = fmt.Sprint(w.Value)
	case memhost.OpRemoveAttr:
		m.Op = protocol.MutRemoveAttr
		m.Node = s.registry.ID(w.Node)
		m.Name = w.Name
	case memhost.OpSetProp:
		m.Op = protocol.MutSetProp
		m.Node = s.registry.ID(w.Node)
		m.Name = w.Name
		m.Value = fmt.Sprint(w.Value)
	case memhost.OpSetText:
		m.Op = protocol.MutSetText
		m.Node = s.registry.ID(w.Node)
		m.Value = fmt.Sprint(w.Value)
	case memhost.OpInsert:
		m.Op = protocol.MutInsert
		m.Node = s.registry.RegisterSubtree(w.Node)
		m.Parent = s.registry.ID(w.Node.Parent())
		m.Before = s.registry.ID(w.Node.NextSibling())
		m.HTML = SerializeSubtree(w.Node)
	case memhost.OpRemove:
		m.Op = protocol.MutRemove
		m.Node = s.registry.ID(w.Node)
		defer s.registry.Release(w.Node)
	case memhost.OpMove:
		m.Op = protocol.MutMove
		m.Node = s.registry.ID(w.Node)
		m.Parent = s.registry.ID(w.Node.Parent())
		m.Before = s.registry.ID(w.Node.NextSibling())
	case memhost.OpAddListener:
		m.Op = protocol.MutAddListener
		m.Node = s.registry.ID(w.Node)
		m.Name = w.Name
	case memhost.OpRemoveListener:
		m.Op = protocol.MutRemoveListener
		m.Node = s.registry.ID(w.Node)
		m.Name = w.Name
	default:
		return
	}

	s.mu.Lock()
	s.pending = append(s.pending, m)
	s.mu.Unlock()
}

// flushPending sends everything committed since the last flush as one
// mutations frame. A no-op when nothing changed or no connection is bound.
func (s *Session) flushPending() error {
	s.mu.Lock()
	if len(s.pending) == 0 || s.conn == nil {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	batch := &protocol.MutationBatch{Seq: s.seq, Mutations: s.pending}
	s.pending = nil
	conn := s.conn
	s.mu.Unlock()

	frame := protocol.NewFrame(protocol.FrameMutations, protocol.EncodeMutations(batch))
	frame.Flags |= protocol.FlagFinal
	return s.writeFrame(conn, frame)
}

func (s *Session) writeFrame(conn *websocket.Conn, frame *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// ReadLoop processes incoming frames until the connection drops. It blocks;
// the server runs it on the upgrade handler's goroutine.
func (s *Session) ReadLoop(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "err", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "err", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(conn, frame.Payload)
		case protocol.FrameControl:
			if s.handleControlFrame(conn, frame.Payload) {
				return
			}
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (s *Session) handleEventFrame(conn *websocket.Conn, payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Error("event decode error", "err", err)
		s.sendError(conn, protocol.ErrInvalidEvent, "malformed event", false)
		return
	}

	node := s.registry.Node(ev.Node)
	if node == nil {
		s.sendError(conn, protocol.ErrTargetNotFound, "no such node", false)
		return
	}

	if err := s.fire(node, ev.Type, ev.Data); err != nil {
		s.logger.Error("event handler panicked", "event", ev.Type, "err", err)
		s.sendError(conn, protocol.ErrHandlerPanic, err.Error(), false)
	}
	if err := s.flushPending(); err != nil {
		s.logger.Error("mutation write failed", "err", err)
	}
}

// fire dispatches the event with panic recovery. Application panics kill
// one event, not the session.
func (s *Session) fire(node *memhost.Node, event, data string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serve: handler panic: %v", r)
		}
	}()
	s.backend.FireEvent(node, event, data)
	return nil
}

// handleControlFrame answers pings and honors closes. Returns true when the
// loop should exit.
func (s *Session) handleControlFrame(conn *websocket.Conn, payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Error("control decode error", "err", err)
		return false
	}
	switch c.Type {
	case protocol.ControlPing:
		pong := &protocol.Control{Type: protocol.ControlPong, Timestamp: c.Timestamp}
		s.writeFrame(conn, protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(pong)))
	case protocol.ControlPong:
		// latency bookkeeping could go here
	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason)
		return true
	}
	return false
}

func (s *Session) sendError(conn *websocket.Conn, code protocol.ErrorCode, msg string, fatal bool) {
	em := &protocol.ErrorMessage{Code: code, Message: msg, Fatal: fatal}
	s.writeFrame(conn, protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)))
}

// pingLoop sends a ping every interval until the session closes.
func (s *Session) pingLoop() {
	if s.config.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			ping := &protocol.Control{Type: protocol.ControlPing, Timestamp: uint64(time.Now().UnixMilli())}
			s.writeFrame(conn, protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping)))
		}
	}
}

// Close tears the session down: connection, ping loop, and mounted root.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.detach()
		s.doc.OnWrite(nil)
		if err := s.root.Unmount(); err != nil {
			s.logger.Debug("unmount", "err", err)
		}
	})
}
