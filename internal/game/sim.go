package game

type ActionType string

const (
	ActionMove        ActionType = "move"
	ActionAttack      ActionType = "attack"
	ActionEndTurn     ActionType = "end_turn"
	ActionCollectLoot ActionType = "collect_loot"
)

type Action struct {
	Type     ActionType `json:"type"`
	UnitID   string     `json:"unit_id,omitempty"`
	TargetID string     `json:"target_id,omitempty"`
	Path     []Position `json:"path,omitempty"`
	LootID   string     `json:"loot_id,omitempty"`
}

type EventType string

const (
	EvtUnitMoved     EventType = "unit_moved"
	EvtUnitAttacked  EventType = "unit_attacked"
	EvtUnitDefeated  EventType = "unit_defeated"
	EvtTurnChanged   EventType = "turn_changed"
	EvtLootDropped   EventType = "loot_dropped"
	EvtLootCollected EventType = "loot_collected"
	EvtCombatEnded   EventType = "combat_ended"
	EvtAdmin         EventType = "admin"
)

type Event struct {
	Type     EventType `json:"type"`
	UnitID   string    `json:"unit_id,omitempty"`
	TargetID string    `json:"target_id,omitempty"`
	Amount   int       `json:"amount,omitempty"`
	Position *Position `json:"position,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

func ContainsEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Simulator is the pure rule engine. Execute never mutates its input: it
// returns a fresh state on success and the unchanged input state alongside
// a non-nil error on rejection.
type Simulator interface {
	Execute(a Action, s *GameState) (*GameState, []Event, error)
}

// Bootstrap builds the opening world when a session starts.
type Bootstrap interface {
	GenerateMap(seed int64, width, height int) GameMap
	GenerateUnits(count int, team Team, seed int64) []Unit
	StartCombat(s *GameState, seed int64) (*GameState, []Event)
}
