package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/DoyleJ11/tactics-backend/internal/hub"
	"github.com/DoyleJ11/tactics-backend/internal/session"
	"github.com/DoyleJ11/tactics-backend/pkg/types"
)

// Handler bridges one websocket connection to its session actor. The
// user_id query param is the verified identity supplied by the auth layer
// in front of us; this core trusts that boundary completely.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		userID := r.URL.Query().Get("user_id")
		if code == "" || userID == "" {
			http.Error(w, "missing code or user_id", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetByCode{Code: code, Reply: reply}
		sess := <-reply
		if sess == nil {
			writeJSON(r.Context(), conn, types.ServerMessage{
				Type:  types.MsgError,
				Code:  session.ErrGameNotFound.Code,
				Error: session.ErrGameNotFound.Message,
			})
			conn.Close(websocket.StatusPolicyViolation, "unknown join code")
			return
		}

		outbox := make(chan types.ServerMessage, 16)

		// Writer goroutine: drains the session's outbox for this client.
		// A send failure here doesn't touch the session; the reader loop
		// notices the dead connection and reports the disconnect. The
		// context arm matters when the session never took ownership of the
		// outbox (join refused): nobody closes the channel, so the writer
		// must die with the handler.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case msg, ok := <-outbox:
					if !ok {
						return
					}
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		joined := false
		defer func() {
			if joined {
				sess.Inbox() <- session.Disconnect{UserID: userID}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Code: "BAD_JSON", Error: "malformed message"})
				continue
			}

			switch cm.Type {
			case types.MsgJoinGame:
				joinReply := make(chan error, 1)
				sess.Inbox() <- session.Join{
					UserID:      userID,
					CharacterID: cm.CharacterID,
					Outbox:      outbox,
					Reply:       joinReply,
				}
				if err := <-joinReply; err != nil {
					se := asSessionError(err)
					writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Seq: cm.Seq, Code: se.Code, Error: se.Message})
					continue
				}
				joined = true

			case types.MsgLeaveGame:
				if joined {
					joined = false
					sess.Inbox() <- session.Leave{UserID: userID}
				}
				return

			case types.MsgReady:
				sess.Inbox() <- session.Ready{UserID: userID, Seq: cm.Seq}

			case types.MsgAction:
				if cm.Action == nil {
					writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Seq: cm.Seq, Code: "BAD_JSON", Error: "action payload missing"})
					continue
				}
				sess.Inbox() <- session.FromClient{UserID: userID, Seq: cm.Seq, Action: *cm.Action}

			case types.MsgDmCommand:
				cmd, ok := toDmCommand(cm.Dm)
				if !ok {
					writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Seq: cm.Seq, Code: "BAD_JSON", Error: "unknown dm command"})
					continue
				}
				sess.Inbox() <- session.FromDM{UserID: userID, Seq: cm.Seq, Cmd: cmd}

			case types.MsgRequestFullSync:
				sess.Inbox() <- session.RequestFullSync{UserID: userID}

			default:
				writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Seq: cm.Seq, Code: "BAD_JSON", Error: "unknown message type"})
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func asSessionError(err error) *session.Error {
	if se, ok := err.(*session.Error); ok {
		return se
	}
	return session.ExecutionError(err.Error())
}

func toDmCommand(p *types.DmPayload) (session.DmCommand, bool) {
	if p == nil {
		return nil, false
	}
	switch p.Type {
	case "start_game":
		return session.StartGame{}, true
	case "pause_game":
		return session.PauseGame{}, true
	case "resume_game":
		return session.ResumeGame{}, true
	case "end_game":
		return session.EndGame{Result: p.Result}, true
	case "grant_weapon":
		if p.Weapon == nil {
			return nil, false
		}
		return session.GrantWeapon{TargetUserID: p.TargetUserID, Weapon: *p.Weapon}, true
	case "grant_gold":
		return session.GrantGold{Amount: p.Amount}, true
	case "grant_xp":
		return session.GrantXp{TargetUserID: p.TargetUserID, Amount: p.Amount}, true
	case "spawn_monster":
		cmd := session.SpawnMonster{Name: p.Name}
		if p.Position != nil {
			cmd.Position = *p.Position
		}
		if p.HP != nil {
			cmd.HP = *p.HP
		}
		if p.AttackBonus != nil {
			cmd.AttackBonus = *p.AttackBonus
		}
		return cmd, true
	case "remove_monster":
		return session.RemoveMonster{UnitID: p.UnitID}, true
	case "modify_monster":
		return session.ModifyMonster{UnitID: p.UnitID, HP: p.HP, AttackBonus: p.AttackBonus}, true
	case "skip_turn":
		return session.SkipTurn{}, true
	case "kick_player":
		return session.KickPlayer{TargetUserID: p.TargetUserID}, true
	default:
		return nil, false
	}
}
