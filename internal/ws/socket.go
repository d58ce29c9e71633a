package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"sinbadgame/internal/audio"
	"sinbadgame/internal/event"
	"sinbadgame/internal/game"
	"sinbadgame/internal/store"
)

type ConnCtx struct {
	SessionID string
}

// Server owns the live controllers and bridges them to the browser over
// Socket.IO: one room per session, state pushed on every controller change.
type Server struct {
	content game.ContentProvider
	sink    *store.ResultSink
	pub     *event.Publisher // nil when events are not configured
	player  audio.Player

	mu          sync.Mutex
	controllers map[string]*game.Controller
	members     map[string]map[string]socketio.Conn // sessionID -> socketID -> conn
}

func New(content game.ContentProvider, sink *store.ResultSink, pub *event.Publisher, player audio.Player) *Server {
	return &Server{
		content:     content,
		sink:        sink,
		pub:         pub,
		player:      player,
		controllers: make(map[string]*game.Controller),
		members:     make(map[string]map[string]socketio.Conn),
	}
}

// ActiveSessions reports the number of live controllers.
func (srv *Server) ActiveSessions() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.controllers)
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:start
	io.OnEvent("/", "game:start", func(s socketio.Conn, payload struct {
		StudentID  string `json:"studentId"`
		Level      string `json:"level"`
		Stage      int    `json:"stage"`
		TimingMode string `json:"timingMode"`
		WaitTimer  *int   `json:"waitTimer"`
	}) map[string]any {
		sessionID := uuid.NewString()
		waitTimer := 5
		if payload.WaitTimer != nil {
			waitTimer = *payload.WaitTimer
		}
		cfg := game.SessionConfig{
			SessionID:  sessionID,
			LearnerID:  payload.StudentID,
			Level:      game.Level(payload.Level),
			Stage:      payload.Stage,
			TimingMode: game.TimingMode(payload.TimingMode),
			WaitTimer:  waitTimer,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := srv.sink.CreateSession(ctx, store.SessionRecord{
			SessionID: sessionID,
			StudentID: cfg.LearnerID,
			Level:     string(cfg.Level),
			Stage:     cfg.Stage,
		})
		cancel()
		if err != nil {
			// degraded persistence must not stop a child from playing
			log.Error().Err(err).Str("session", sessionID).Msg("create session row failed")
		}

		seq := audio.NewSequencer(srv.player, log.With().Str("session", sessionID).Logger())
		ctrl := game.NewController(cfg, srv.content, srv.sink, seq, log.Logger)
		ctrl.OnChange(func(snap game.Snapshot) { srv.emitState(snap) })
		ctrl.OnComplete(func(snap game.Snapshot) { srv.completed(snap) })

		if err := ctrl.Start(); err != nil {
			ctrl.Close()
			if errors.Is(err, game.ErrContentNotFound) {
				return srv.err(s, "content_not_found", err.Error())
			}
			return srv.err(s, "bad_request", err.Error())
		}

		srv.mu.Lock()
		srv.controllers[sessionID] = ctrl
		srv.mu.Unlock()
		s.SetContext(&ConnCtx{SessionID: sessionID})
		s.Join(sessionID)
		srv.addMember(sessionID, s)
		log.Info().Str("sid", s.ID()).Str("session", sessionID).Msg("game:start")
		return map[string]any{"sessionId": sessionID, "state": ctrl.Snapshot()}
	})

	// game:select
	io.OnEvent("/", "game:select", func(s socketio.Conn, payload struct {
		Item string `json:"item"`
	}) map[string]any {
		ctrl, errResp := srv.controllerFor(s)
		if errResp != nil {
			return errResp
		}
		if err := ctrl.ToggleItem(payload.Item); err != nil {
			return srv.err(s, codeFor(err), err.Error())
		}
		return map[string]any{"ok": true}
	})

	// game:submit
	io.OnEvent("/", "game:submit", func(s socketio.Conn, payload struct{}) map[string]any {
		ctrl, errResp := srv.controllerFor(s)
		if errResp != nil {
			return errResp
		}
		if err := ctrl.Submit(); err != nil {
			return srv.err(s, codeFor(err), err.Error())
		}
		return map[string]any{"ok": true}
	})

	// game:state (refresh/resume)
	io.OnEvent("/", "game:state", func(s socketio.Conn, payload struct {
		SessionID string `json:"sessionId"`
	}) map[string]any {
		if payload.SessionID != "" {
			srv.mu.Lock()
			ctrl := srv.controllers[payload.SessionID]
			srv.mu.Unlock()
			if ctrl == nil {
				return srv.err(s, "session_not_found", "Session not found")
			}
			s.SetContext(&ConnCtx{SessionID: payload.SessionID})
			s.Join(payload.SessionID)
			srv.addMember(payload.SessionID, s)
			return map[string]any{"state": ctrl.Snapshot()}
		}
		ctrl, errResp := srv.controllerFor(s)
		if errResp != nil {
			return errResp
		}
		return map[string]any{"state": ctrl.Snapshot()}
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		ctx, _ := s.Context().(*ConnCtx)
		if ctx == nil || ctx.SessionID == "" {
			return
		}
		srv.dropMember(ctx.SessionID, s)
		log.Info().Str("sid", s.ID()).Str("session", ctx.SessionID).Str("reason", reason).Msg("socket disconnected")
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Err(e).Msg("socket error")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socketio serve")
		}
	}()
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	return io
}

func (srv *Server) controllerFor(s socketio.Conn) (*game.Controller, map[string]any) {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.SessionID == "" {
		return nil, srv.err(s, "session_not_found", "No session on this connection")
	}
	srv.mu.Lock()
	ctrl := srv.controllers[ctx.SessionID]
	srv.mu.Unlock()
	if ctrl == nil {
		return nil, srv.err(s, "session_not_found", "Session not found")
	}
	return ctrl, nil
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, game.ErrSelectionIncomplete):
		return "selection_incomplete"
	case errors.Is(err, game.ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, game.ErrContentNotFound):
		return "content_not_found"
	default:
		return "bad_request"
	}
}

func (srv *Server) emitState(snap game.Snapshot) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[snap.SessionID]))
	for _, c := range srv.members[snap.SessionID] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit("game:state", snap)
	}
}

// completed fires once per session after the hand-off delay: publish the
// completion event and emit the final state, then retire the controller.
func (srv *Server) completed(snap game.Snapshot) {
	if srv.pub != nil {
		if err := srv.pub.Publish(event.SessionCompleted, snap); err != nil {
			log.Error().Err(err).Str("session", snap.SessionID).Msg("publish completion event failed")
		}
	}
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[snap.SessionID]))
	for _, c := range srv.members[snap.SessionID] {
		conns = append(conns, c)
	}
	ctrl := srv.controllers[snap.SessionID]
	delete(srv.controllers, snap.SessionID)
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit("game:completed", snap)
	}
	if ctrl != nil {
		ctrl.Close()
	}
}

func (srv *Server) addMember(sessionID string, s socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[sessionID] == nil {
		srv.members[sessionID] = make(map[string]socketio.Conn)
	}
	srv.members[sessionID][s.ID()] = s
}

// dropMember removes a connection; the last one leaving tears the session
// down so orphaned timers and audio handles never outlive the learner.
func (srv *Server) dropMember(sessionID string, s socketio.Conn) {
	srv.mu.Lock()
	if m := srv.members[sessionID]; m != nil {
		delete(m, s.ID())
		if len(m) > 0 {
			srv.mu.Unlock()
			return
		}
		delete(srv.members, sessionID)
	}
	ctrl := srv.controllers[sessionID]
	delete(srv.controllers, sessionID)
	srv.mu.Unlock()
	if ctrl != nil {
		ctrl.Close()
		log.Info().Str("session", sessionID).Msg("session released, no connections left")
	}
}

func (srv *Server) err(s socketio.Conn, code, msg string) map[string]any {
	s.Emit("game:error", map[string]any{"code": code, "message": msg})
	return map[string]any{"error": code, "message": msg}
}
