package game

import "encoding/json"

type Team string

const (
	TeamPlayers  Team = "players"
	TeamMonsters Team = "monsters"
)

type Phase string

const (
	PhaseCombat  Phase = "combat"
	PhaseVictory Phase = "victory"
	PhaseDefeat  Phase = "defeat"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chebyshev is the board distance between two positions: diagonal steps
// count as one.
func Chebyshev(a, b Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

type ItemKind string

const (
	ItemGold   ItemKind = "gold"
	ItemSilver ItemKind = "silver"
	ItemWeapon ItemKind = "weapon"
)

type Item struct {
	Kind        ItemKind `json:"kind"`
	Name        string   `json:"name,omitempty"`
	Amount      int      `json:"amount,omitempty"`
	AttackBonus int      `json:"attack_bonus,omitempty"`
}

type Unit struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Team        Team     `json:"team"`
	Position    Position `json:"position"`
	HP          int      `json:"hp"`
	MaxHP       int      `json:"max_hp"`
	Initiative  int      `json:"initiative"`
	AttackBonus int      `json:"attack_bonus"`
	Weapon      *Item    `json:"weapon,omitempty"`
	XP          int      `json:"xp,omitempty"`
}

func (u *Unit) Alive() bool { return u.HP > 0 }

// attack reach = base 1 damage plus unit bonus plus equipped weapon bonus
func (u *Unit) Damage() int {
	d := 1 + u.AttackBonus
	if u.Weapon != nil {
		d += u.Weapon.AttackBonus
	}
	return d
}

type GameMap struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Seed   int64 `json:"seed"`
	// Tiles is row-major; 0 floor, 1 wall.
	Tiles []int `json:"tiles"`
}

func (m *GameMap) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

func (m *GameMap) Walkable(p Position) bool {
	if !m.InBounds(p) {
		return false
	}
	return m.Tiles[p.Y*m.Width+p.X] == 0
}

type LootDrop struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Items    []Item   `json:"items"`
}

type CombatState struct {
	Phase           Phase    `json:"phase"`
	InitiativeOrder []string `json:"initiative_order"`
	TurnIndex       int      `json:"turn_index"`
	TurnNumber      int      `json:"turn_number"`
	RoundNumber     int      `json:"round_number"`
}

func (c *CombatState) CurrentUnit() string {
	if len(c.InitiativeOrder) == 0 {
		return ""
	}
	return c.InitiativeOrder[c.TurnIndex]
}

// GameState is the authoritative state replicated to every client. It is
// only ever replaced wholesale after a successful action, never patched in
// place by network handlers.
type GameState struct {
	Map       GameMap     `json:"map"`
	Units     []Unit      `json:"units"`
	Combat    CombatState `json:"combat"`
	Loot      []LootDrop  `json:"loot"`
	Inventory []Item      `json:"inventory"`
}

func (s *GameState) Unit(id string) *Unit {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i]
		}
	}
	return nil
}

func (s *GameState) UnitAt(p Position) *Unit {
	for i := range s.Units {
		if s.Units[i].Position == p && s.Units[i].Alive() {
			return &s.Units[i]
		}
	}
	return nil
}

// Outcome reports whether combat is decided and how. Victory when no
// monster is left standing, defeat when no player unit is. A team that was
// never fielded can't be wiped out, so a board without monsters (say, the
// DM hasn't spawned any yet) stays undecided.
func (s *GameState) Outcome() (bool, Phase) {
	playersSeen, monstersSeen := false, false
	playersAlive, monstersAlive := false, false
	for i := range s.Units {
		switch s.Units[i].Team {
		case TeamPlayers:
			playersSeen = true
			playersAlive = playersAlive || s.Units[i].Alive()
		case TeamMonsters:
			monstersSeen = true
			monstersAlive = monstersAlive || s.Units[i].Alive()
		}
	}
	if monstersSeen && !monstersAlive {
		return true, PhaseVictory
	}
	if playersSeen && !playersAlive {
		return true, PhaseDefeat
	}
	return false, ""
}

// Clone deep-copies the state through its JSON form. Cheap enough at this
// scale and guaranteed to match what clients see on the wire.
func (s *GameState) Clone() *GameState {
	raw, err := json.Marshal(s)
	if err != nil {
		panic("game: state not marshalable: " + err.Error())
	}
	var out GameState
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("game: state not unmarshalable: " + err.Error())
	}
	return &out
}
