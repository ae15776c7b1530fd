package loot

import (
	"fmt"

	"github.com/DoyleJ11/tactics-backend/internal/game"
)

// Drop rolls are seeded per call so the same (position, seed) pair always
// produces the same drop, no matter what else the session rolled before.

const (
	coinChance   = 0.80
	weaponChance = 0.25
)

type weaponRow struct {
	name     string
	bonus    int
	dropRate int // relative weight, not rarity
}

var weaponTable = []weaponRow{
	{name: "dagger", bonus: 1, dropRate: 40},
	{name: "shortsword", bonus: 2, dropRate: 30},
	{name: "mace", bonus: 3, dropRate: 15},
	{name: "longsword", bonus: 4, dropRate: 10},
	{name: "greatsword", bonus: 6, dropRate: 5},
}

// lcg is a small linear-congruential generator. We don't need math/rand
// quality here, just stable cross-run reproducibility for a given seed.
type lcg struct{ state uint64 }

func newLCG(seed int64) *lcg {
	return &lcg{state: uint64(seed)*6364136223846793005 + 1442695040888963407}
}

func (l *lcg) next() uint64 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return l.state
}

func (l *lcg) float64() float64 {
	return float64(l.next()>>11) / (1 << 53)
}

// intn returns a value in [0, n).
func (l *lcg) intn(n int) int {
	return int(l.next() % uint64(n))
}

// GenerateDrop rolls loot for a defeated unit. Returns nil when nothing
// rolled; an empty drop is never produced.
func GenerateDrop(pos game.Position, seed int64) *game.LootDrop {
	rng := newLCG(seed)

	var items []game.Item
	if rng.float64() < coinChance {
		gold := 1 + rng.intn(5)    // 1..5
		silver := 5 + rng.intn(16) // 5..20
		items = append(items,
			game.Item{Kind: game.ItemGold, Amount: gold},
			game.Item{Kind: game.ItemSilver, Amount: silver},
		)
	}
	if rng.float64() < weaponChance {
		items = append(items, rollWeapon(rng))
	}
	if len(items) == 0 {
		return nil
	}

	return &game.LootDrop{
		ID:       fmt.Sprintf("loot-%d", seed),
		Position: pos,
		Items:    items,
	}
}

func rollWeapon(rng *lcg) game.Item {
	total := 0
	for _, w := range weaponTable {
		total += w.dropRate
	}
	roll := rng.intn(total)
	for _, w := range weaponTable {
		roll -= w.dropRate
		if roll < 0 {
			return game.Item{Kind: game.ItemWeapon, Name: w.name, AttackBonus: w.bonus}
		}
	}
	// Unreachable: weights sum to total.
	last := weaponTable[len(weaponTable)-1]
	return game.Item{Kind: game.ItemWeapon, Name: last.name, AttackBonus: last.bonus}
}

// CanCollect reports whether a unit standing at unitPos may pick up a drop
// at dropPos: Chebyshev distance of at most one.
func CanCollect(unitPos, dropPos game.Position) bool {
	return game.Chebyshev(unitPos, dropPos) <= 1
}

// ShouldAutoEquip reports whether the candidate weapon replaces the current
// one: strictly greater attack bonus only, ties keep the current weapon.
func ShouldAutoEquip(current *game.Item, candidate game.Item) bool {
	if candidate.Kind != game.ItemWeapon {
		return false
	}
	if current == nil {
		return true
	}
	return candidate.AttackBonus > current.AttackBonus
}
