package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/tactics-backend/internal/config"
	"github.com/DoyleJ11/tactics-backend/internal/hub"
	"github.com/DoyleJ11/tactics-backend/internal/session"
)

type createRequest struct {
	// UserID is the verified identity of the requester; the auth boundary
	// upstream fills it in.
	UserID        string `json:"user_id"`
	MaxPlayers    int    `json:"max_players"`
	MapSeed       int64  `json:"map_seed"`
	Difficulty    string `json:"difficulty"`
	TurnTimeSec   int    `json:"turn_time_sec"`
	AllowLateJoin bool   `json:"allow_late_join"`
}

type createResponse struct {
	SessionID string `json:"session_id"`
	JoinCode  string `json:"join_code"`
}

func CreateSession(h *hub.Hub, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "missing user_id", http.StatusBadRequest)
			return
		}

		scfg := session.Config{
			MaxPlayers:          req.MaxPlayers,
			MapSeed:             req.MapSeed,
			Difficulty:          req.Difficulty,
			TurnTimeLimit:       cfg.TurnTimeLimit,
			AllowLateJoin:       req.AllowLateJoin,
			FullSyncEveryRounds: cfg.FullSyncRounds,
			MonsterDelay:        cfg.MonsterDelay,
			DisconnectGrace:     cfg.DisconnectGrace,
		}
		if req.TurnTimeSec > 0 {
			scfg.TurnTimeLimit = time.Duration(req.TurnTimeSec) * time.Second
		}
		if scfg.MapSeed == 0 {
			scfg.MapSeed = time.Now().UnixNano()
		}

		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateSession{
			ID:      uuid.NewString(),
			OwnerID: req.UserID,
			Cfg:     scfg,
			Reply:   reply,
		}
		res := <-reply
		if res.Err != nil {
			var se *session.Error
			if errors.As(res.Err, &se) {
				writeError(w, http.StatusBadRequest, se.Code, se.Message)
				return
			}
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createResponse{
			SessionID: res.Session.ID(),
			JoinCode:  res.Session.JoinCode(),
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{Code: code, Message: msg})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
