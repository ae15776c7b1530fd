// Package turn tracks whose turn it is. The manager itself is plain data
// owned by a single session goroutine; all timer scheduling stays with the
// owner so cancellation is just bumping a generation counter.
package turn

import "time"

type Manager struct {
	Order  []string
	Cursor int
	// Round starts at 1 and increments whenever the cursor wraps.
	Round     int
	TurnCount int
	StartedAt time.Time
}

type Advance struct {
	NextUnitID string
	NewRound   bool
}

func NewManager(order []string) *Manager {
	return &Manager{Order: order, Round: 1, TurnCount: 1}
}

// Resume rebuilds a manager from persisted combat state.
func Resume(order []string, cursor, round, turnCount int) *Manager {
	return &Manager{Order: order, Cursor: cursor, Round: round, TurnCount: turnCount}
}

func (m *Manager) Current() string {
	if len(m.Order) == 0 {
		return ""
	}
	return m.Order[m.Cursor]
}

func (m *Manager) StartTurn(now time.Time) {
	m.StartedAt = now
}

// End advances the cursor. NewRound is true exactly when the cursor wraps
// back to the head of the initiative order.
func (m *Manager) End() Advance {
	if len(m.Order) == 0 {
		return Advance{}
	}
	m.Cursor = (m.Cursor + 1) % len(m.Order)
	m.TurnCount++
	wrapped := m.Cursor == 0
	if wrapped {
		m.Round++
	}
	return Advance{NextUnitID: m.Order[m.Cursor], NewRound: wrapped}
}

// Remove drops a unit from the initiative order, keeping the cursor on the
// same logical turn. Removing the current unit hands the turn to whoever
// was next.
func (m *Manager) Remove(unitID string) {
	for i, id := range m.Order {
		if id != unitID {
			continue
		}
		m.Order = append(m.Order[:i], m.Order[i+1:]...)
		if len(m.Order) == 0 {
			m.Cursor = 0
			return
		}
		switch {
		case i < m.Cursor:
			m.Cursor--
		case i == m.Cursor && m.Cursor >= len(m.Order):
			m.Cursor = 0
		}
		return
	}
}
