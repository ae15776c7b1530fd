// Package hub is the session registry: an actor owning every live session,
// keyed by id with a join-code index. Sessions share no mutable state, so
// cross-session lookups parallelize trivially while each session stays
// single-threaded inside its own actor.
package hub

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tactics-backend/internal/session"
)

// Join codes avoid visually ambiguous symbols (I, O, 0, 1); 32 symbols,
// 6 characters.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	ID      string
	OwnerID string
	Cfg     session.Config
	Reply   chan CreateResult
}

type CreateResult struct {
	Session *session.Session
	Err     error
}

type GetByID struct {
	ID    string
	Reply chan *session.Session
}

type GetByCode struct {
	Code  string
	Reply chan *session.Session
}

type Remove struct{ ID string }

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetByID) isHubMsg()       {}
func (GetByCode) isHubMsg()     {}
func (Remove) isHubMsg()        {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	byCode   map[string]string
	deps     session.Deps
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, deps session.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		byCode:   make(map[string]string),
		deps:     deps,
		log:      deps.Log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Restore rebuilds persisted sessions before the hub starts serving.
// Called from main, ahead of any traffic.
func (h *Hub) Restore(ctx context.Context) error {
	recs, err := h.deps.Store.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		s, err := session.Rehydrate(h.ctx, rec, h.deps)
		if err != nil {
			h.log.Error("rehydrate failed", zap.String("session_id", rec.ID), zap.Error(err))
			continue
		}
		h.inbox <- register{s: s}
	}
	return nil
}

type register struct{ s *session.Session }

func (register) isHubMsg() {}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.create(msg)

			case register:
				h.sessions[msg.s.ID()] = msg.s
				h.byCode[msg.s.JoinCode()] = msg.s.ID()

			case GetByID:
				msg.Reply <- h.sessions[msg.ID] // may be nil

			case GetByCode:
				if id, ok := h.byCode[msg.Code]; ok {
					msg.Reply <- h.sessions[id]
				} else {
					msg.Reply <- nil
				}

			case Remove:
				if s, ok := h.sessions[msg.ID]; ok {
					delete(h.byCode, s.JoinCode())
					delete(h.sessions, msg.ID)
					s.Inbox() <- session.Shutdown{}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(msg CreateSession) CreateResult {
	if err := msg.Cfg.Validate(); err != nil {
		return CreateResult{Err: err}
	}

	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return CreateResult{Err: err}
		}
		if _, taken := h.byCode[c]; !taken {
			code = c
			break
		}
		h.log.Info("join code collision, regenerating")
	}

	s := session.New(h.ctx, msg.ID, code, msg.OwnerID, msg.Cfg, h.deps)
	h.sessions[msg.ID] = s
	h.byCode[code] = msg.ID
	h.log.Info("session created", zap.String("session_id", msg.ID), zap.String("code", code))
	return CreateResult{Session: s}
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
	}
	clear(h.sessions)
	clear(h.byCode)
	h.cancel()
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
