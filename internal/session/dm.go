package session

import (
	"fmt"

	"github.com/DoyleJ11/tactics-backend/internal/game"
)

// DmCommand is a closed set of administrative commands. They bypass the
// normal action validation chain but still flow through the same commit
// path, so every one of them produces a broadcast delta and an audit event.
type DmCommand interface{ isDmCommand() }

type StartGame struct{}
type PauseGame struct{}
type ResumeGame struct{}
type EndGame struct{ Result string }
type GrantWeapon struct {
	TargetUserID string
	Weapon       game.Item
}
type GrantGold struct{ Amount int }
type GrantXp struct {
	TargetUserID string
	Amount       int
}
type SpawnMonster struct {
	Name        string
	Position    game.Position
	HP          int
	AttackBonus int
}
type RemoveMonster struct{ UnitID string }
type ModifyMonster struct {
	UnitID      string
	HP          *int
	AttackBonus *int
}
type SkipTurn struct{}
type KickPlayer struct{ TargetUserID string }

func (StartGame) isDmCommand()     {}
func (PauseGame) isDmCommand()     {}
func (ResumeGame) isDmCommand()    {}
func (EndGame) isDmCommand()       {}
func (GrantWeapon) isDmCommand()   {}
func (GrantGold) isDmCommand()     {}
func (GrantXp) isDmCommand()       {}
func (SpawnMonster) isDmCommand()  {}
func (RemoveMonster) isDmCommand() {}
func (ModifyMonster) isDmCommand() {}
func (SkipTurn) isDmCommand()      {}
func (KickPlayer) isDmCommand()    {}

func (s *Session) handleDm(userID string, seq int, cmd DmCommand) *Error {
	if userID != s.ownerID {
		return ErrNotDM
	}

	switch c := cmd.(type) {
	case StartGame:
		return s.startGame()
	case PauseGame:
		return s.pause()
	case ResumeGame:
		return s.resume()
	case EndGame:
		return s.endGame(c.Result)
	case GrantWeapon:
		return s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			slot := s.slotByUser(c.TargetUserID)
			if slot == nil || slot.UnitID == "" {
				return ErrPlayerNotInGame, nil
			}
			u := ns.Unit(slot.UnitID)
			if u == nil {
				return ErrInvalidUnit, nil
			}
			w := c.Weapon
			w.Kind = game.ItemWeapon
			u.Weapon = &w
			return nil, []game.Event{adminEvent(fmt.Sprintf("grant_weapon %s to %s", w.Name, slot.UnitID))}
		})
	case GrantGold:
		return s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			ns.Inventory = append(ns.Inventory, game.Item{Kind: game.ItemGold, Amount: c.Amount})
			return nil, []game.Event{adminEvent(fmt.Sprintf("grant_gold %d", c.Amount))}
		})
	case GrantXp:
		return s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			slot := s.slotByUser(c.TargetUserID)
			if slot == nil || slot.UnitID == "" {
				return ErrPlayerNotInGame, nil
			}
			u := ns.Unit(slot.UnitID)
			if u == nil {
				return ErrInvalidUnit, nil
			}
			u.XP += c.Amount
			return nil, []game.Event{adminEvent(fmt.Sprintf("grant_xp %d to %s", c.Amount, slot.UnitID))}
		})
	case SpawnMonster:
		return s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			id := fmt.Sprintf("monster-%d", len(ns.Units)+1)
			hp := c.HP
			if hp <= 0 {
				hp = 6
			}
			ns.Units = append(ns.Units, game.Unit{
				ID: id, Name: c.Name, Team: game.TeamMonsters,
				Position: c.Position, HP: hp, MaxHP: hp, AttackBonus: c.AttackBonus,
			})
			ns.Combat.InitiativeOrder = append(ns.Combat.InitiativeOrder, id)
			s.turns.Order = append(s.turns.Order, id)
			return nil, []game.Event{adminEvent("spawn_monster " + id)}
		})
	case RemoveMonster:
		var wasCurrent bool
		err := s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			u := ns.Unit(c.UnitID)
			if u == nil || u.Team != game.TeamMonsters {
				return ErrInvalidUnit, nil
			}
			for i := range ns.Units {
				if ns.Units[i].ID == c.UnitID {
					ns.Units = append(ns.Units[:i], ns.Units[i+1:]...)
					break
				}
			}
			wasCurrent = s.turns.Current() == c.UnitID
			s.turns.Remove(c.UnitID)
			ns.Combat.InitiativeOrder = s.turns.Order
			ns.Combat.TurnIndex = s.turns.Cursor
			return nil, []game.Event{adminEvent("remove_monster " + c.UnitID)}
		})
		if err != nil {
			return err
		}
		s.afterRemoval(wasCurrent)
		return nil
	case ModifyMonster:
		return s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
			u := ns.Unit(c.UnitID)
			if u == nil || u.Team != game.TeamMonsters {
				return ErrInvalidUnit, nil
			}
			if c.HP != nil {
				u.HP = *c.HP
				if u.HP > u.MaxHP {
					u.MaxHP = u.HP
				}
			}
			if c.AttackBonus != nil {
				u.AttackBonus = *c.AttackBonus
			}
			return nil, []game.Event{adminEvent("modify_monster " + c.UnitID)}
		})
	case SkipTurn:
		return s.skipTurn()
	case KickPlayer:
		return s.kickPlayer(c.TargetUserID)
	default:
		return ExecutionError("unknown dm command")
	}
}

func adminEvent(detail string) game.Event {
	return game.Event{Type: game.EvtAdmin, Detail: detail}
}
