// Package rules is the default pure rule engine. The session core only
// depends on the game.Simulator and game.Bootstrap contracts, so a richer
// engine can be swapped in without touching session code.
package rules

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/internal/loot"
)

var ErrUnknownUnit = errors.New("unknown unit")
var ErrUnitDown = errors.New("unit is down")
var ErrIllegalMove = errors.New("illegal move path")
var ErrTileOccupied = errors.New("destination occupied")
var ErrOutOfRange = errors.New("target out of range")
var ErrUnknownLoot = errors.New("unknown loot drop")
var ErrTooFarFromLoot = errors.New("too far from loot")
var ErrUnsupportedAction = errors.New("unsupported action")

// MoveRange is the maximum number of tiles a unit may cross per move.
const MoveRange = 5

type Engine struct{}

func New() *Engine { return &Engine{} }

// Execute applies one action. The input state is never mutated: a clone is
// returned on success, and a nil state with an error on rejection.
func (e *Engine) Execute(a game.Action, s *game.GameState) (*game.GameState, []game.Event, error) {
	switch a.Type {
	case game.ActionMove:
		return e.move(a, s)
	case game.ActionAttack:
		return e.attack(a, s)
	case game.ActionCollectLoot:
		return e.collect(a, s)
	case game.ActionEndTurn:
		ns := s.Clone()
		return ns, []game.Event{{Type: game.EvtTurnChanged, UnitID: a.UnitID}}, nil
	default:
		return nil, nil, ErrUnsupportedAction
	}
}

func (e *Engine) move(a game.Action, s *game.GameState) (*game.GameState, []game.Event, error) {
	u := s.Unit(a.UnitID)
	if u == nil {
		return nil, nil, ErrUnknownUnit
	}
	if !u.Alive() {
		return nil, nil, ErrUnitDown
	}
	if len(a.Path) == 0 || len(a.Path) > MoveRange {
		return nil, nil, ErrIllegalMove
	}

	// Path must be a chain of single steps starting next to the unit.
	prev := u.Position
	for _, p := range a.Path {
		if game.Chebyshev(prev, p) != 1 {
			return nil, nil, ErrIllegalMove
		}
		if !s.Map.Walkable(p) {
			return nil, nil, ErrIllegalMove
		}
		prev = p
	}
	dest := a.Path[len(a.Path)-1]
	if occ := s.UnitAt(dest); occ != nil && occ.ID != u.ID {
		return nil, nil, ErrTileOccupied
	}

	ns := s.Clone()
	ns.Unit(a.UnitID).Position = dest
	ev := []game.Event{{Type: game.EvtUnitMoved, UnitID: a.UnitID, Position: &dest}}
	return ns, ev, nil
}

func (e *Engine) attack(a game.Action, s *game.GameState) (*game.GameState, []game.Event, error) {
	att := s.Unit(a.UnitID)
	if att == nil {
		return nil, nil, ErrUnknownUnit
	}
	if !att.Alive() {
		return nil, nil, ErrUnitDown
	}
	tgt := s.Unit(a.TargetID)
	if tgt == nil || tgt.ID == att.ID {
		return nil, nil, ErrUnknownUnit
	}
	if !tgt.Alive() {
		return nil, nil, ErrUnitDown
	}
	if game.Chebyshev(att.Position, tgt.Position) > 1 {
		return nil, nil, ErrOutOfRange
	}

	ns := s.Clone()
	dmg := att.Damage()
	target := ns.Unit(a.TargetID)
	target.HP -= dmg
	events := []game.Event{{Type: game.EvtUnitAttacked, UnitID: a.UnitID, TargetID: a.TargetID, Amount: dmg}}

	if !target.Alive() {
		events = append(events, game.Event{Type: game.EvtUnitDefeated, UnitID: target.ID})
		if drop := loot.GenerateDrop(target.Position, dropSeed(ns, target.ID)); drop != nil {
			ns.Loot = append(ns.Loot, *drop)
			events = append(events, game.Event{Type: game.EvtLootDropped, UnitID: target.ID, Position: &drop.Position})
		}
		if done, phase := ns.Outcome(); done {
			ns.Combat.Phase = phase
			events = append(events, game.Event{Type: game.EvtCombatEnded, Detail: string(phase)})
		}
	}
	return ns, events, nil
}

func (e *Engine) collect(a game.Action, s *game.GameState) (*game.GameState, []game.Event, error) {
	u := s.Unit(a.UnitID)
	if u == nil {
		return nil, nil, ErrUnknownUnit
	}
	if !u.Alive() {
		return nil, nil, ErrUnitDown
	}
	idx := -1
	for i := range s.Loot {
		if s.Loot[i].ID == a.LootID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, ErrUnknownLoot
	}
	if !loot.CanCollect(u.Position, s.Loot[idx].Position) {
		return nil, nil, ErrTooFarFromLoot
	}

	ns := s.Clone()
	drop := ns.Loot[idx]
	collector := ns.Unit(a.UnitID)
	for _, it := range drop.Items {
		ns.Inventory = append(ns.Inventory, it)
		if loot.ShouldAutoEquip(collector.Weapon, it) {
			w := it
			collector.Weapon = &w
		}
	}
	ns.Loot = append(ns.Loot[:idx], ns.Loot[idx+1:]...)
	ev := []game.Event{{Type: game.EvtLootCollected, UnitID: a.UnitID, Detail: drop.ID, Amount: len(drop.Items)}}
	return ns, ev, nil
}

// dropSeed derives a per-defeat loot seed from stable state so replays of
// the same fight roll the same drops.
func dropSeed(s *game.GameState, unitID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(unitID))
	return s.Map.Seed*1000003 + int64(s.Combat.TurnNumber)*31 + int64(h.Sum64()%100000)
}

// --- Bootstrap ---

// GenerateMap fills a seeded map. Walls land only in the middle band so
// both spawn rows stay clear.
func (e *Engine) GenerateMap(seed int64, width, height int) game.GameMap {
	m := game.GameMap{Width: width, Height: height, Seed: seed, Tiles: make([]int, width*height)}
	rng := rand.New(rand.NewSource(seed))
	for y := 3; y <= height-7; y++ {
		for x := 1; x < width-1; x++ {
			if rng.Float64() < 0.12 {
				m.Tiles[y*width+x] = 1
			}
		}
	}
	return m
}

// GenerateUnits spawns a row of units for one team at deterministic
// positions. Player units sit on row 0, monsters on row 9.
func (e *Engine) GenerateUnits(count int, team game.Team, seed int64) []game.Unit {
	rng := rand.New(rand.NewSource(seed))
	row := 0
	units := make([]game.Unit, 0, count)
	for i := 0; i < count; i++ {
		u := game.Unit{
			Team:       team,
			Position:   game.Position{X: 1 + i*2, Y: row},
			Initiative: 1 + rng.Intn(20),
		}
		switch team {
		case game.TeamMonsters:
			u.ID = fmt.Sprintf("monster-%d", i+1)
			u.Name = fmt.Sprintf("goblin %d", i+1)
			u.Position.Y = 9
			u.HP, u.MaxHP = 6, 6
			u.AttackBonus = 1
		default:
			u.ID = fmt.Sprintf("player-%d", i+1)
			u.Name = fmt.Sprintf("hero %d", i+1)
			u.HP, u.MaxHP = 10, 10
			u.AttackBonus = 1
		}
		units = append(units, u)
	}
	return units
}

// StartCombat rolls initiative over every unit. Ties break on a seeded
// roll so the order is stable for a given seed.
func (e *Engine) StartCombat(s *game.GameState, seed int64) (*game.GameState, []game.Event) {
	ns := s.Clone()
	if len(ns.Units) == 0 {
		return ns, nil
	}
	rng := rand.New(rand.NewSource(seed))

	type entry struct {
		id       string
		init     int
		tiebreak int
	}
	entries := make([]entry, 0, len(ns.Units))
	for i := range ns.Units {
		entries = append(entries, entry{id: ns.Units[i].ID, init: ns.Units[i].Initiative, tiebreak: rng.Int()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].init != entries[j].init {
			return entries[i].init > entries[j].init
		}
		return entries[i].tiebreak > entries[j].tiebreak
	})

	order := make([]string, len(entries))
	for i, en := range entries {
		order[i] = en.id
	}
	ns.Combat = game.CombatState{
		Phase:           game.PhaseCombat,
		InitiativeOrder: order,
		TurnIndex:       0,
		TurnNumber:      1,
		RoundNumber:     1,
	}
	ev := []game.Event{{Type: game.EvtTurnChanged, UnitID: order[0]}}
	return ns, ev
}
