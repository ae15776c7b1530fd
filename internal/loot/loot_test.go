package loot

import (
	"testing"

	"github.com/DoyleJ11/tactics-backend/internal/game"
)

func TestGenerateDrop_DeterministicForSeed(t *testing.T) {
	pos := game.Position{X: 3, Y: 4}

	first := GenerateDrop(pos, 12345)
	for i := 0; i < 50; i++ {
		again := GenerateDrop(pos, 12345)
		if (first == nil) != (again == nil) {
			t.Fatalf("run %d: nilness diverged", i)
		}
		if first == nil {
			continue
		}
		if len(first.Items) != len(again.Items) {
			t.Fatalf("run %d: item count diverged: %d vs %d", i, len(first.Items), len(again.Items))
		}
		for j := range first.Items {
			if first.Items[j] != again.Items[j] {
				t.Fatalf("run %d item %d: %+v vs %+v", i, j, first.Items[j], again.Items[j])
			}
		}
	}
}

func TestGenerateDrop_NeverEmpty(t *testing.T) {
	pos := game.Position{}
	for seed := int64(0); seed < 500; seed++ {
		drop := GenerateDrop(pos, seed)
		if drop != nil && len(drop.Items) == 0 {
			t.Fatalf("seed %d: empty drop should be nil", seed)
		}
	}
}

func TestGenerateDrop_CoinRanges(t *testing.T) {
	for seed := int64(0); seed < 500; seed++ {
		drop := GenerateDrop(game.Position{}, seed)
		if drop == nil {
			continue
		}
		for _, it := range drop.Items {
			switch it.Kind {
			case game.ItemGold:
				if it.Amount < 1 || it.Amount > 5 {
					t.Fatalf("seed %d: gold %d out of [1,5]", seed, it.Amount)
				}
			case game.ItemSilver:
				if it.Amount < 5 || it.Amount > 20 {
					t.Fatalf("seed %d: silver %d out of [5,20]", seed, it.Amount)
				}
			case game.ItemWeapon:
				if it.AttackBonus < 1 {
					t.Fatalf("seed %d: weapon without attack bonus: %+v", seed, it)
				}
			}
		}
	}
}

func TestCanCollect_ChebyshevBoundary(t *testing.T) {
	drop := game.Position{X: 5, Y: 5}

	cases := []struct {
		name string
		unit game.Position
		want bool
	}{
		{name: "same tile", unit: game.Position{X: 5, Y: 5}, want: true},
		{name: "orthogonal adjacent", unit: game.Position{X: 5, Y: 6}, want: true},
		{name: "diagonal adjacent", unit: game.Position{X: 6, Y: 6}, want: true},
		{name: "distance two straight", unit: game.Position{X: 5, Y: 7}, want: false},
		{name: "distance two diagonal", unit: game.Position{X: 7, Y: 7}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanCollect(tc.unit, drop); got != tc.want {
				t.Fatalf("CanCollect(%+v): got %v, want %v", tc.unit, got, tc.want)
			}
		})
	}
}

func TestShouldAutoEquip(t *testing.T) {
	mace := game.Item{Kind: game.ItemWeapon, Name: "mace", AttackBonus: 3}

	cases := []struct {
		name      string
		current   *game.Item
		candidate game.Item
		want      bool
	}{
		{name: "no current weapon", current: nil, candidate: mace, want: true},
		{
			name:      "strictly better",
			current:   &game.Item{Kind: game.ItemWeapon, Name: "dagger", AttackBonus: 1},
			candidate: mace,
			want:      true,
		},
		{
			name:      "equal bonus keeps current",
			current:   &game.Item{Kind: game.ItemWeapon, Name: "other mace", AttackBonus: 3},
			candidate: mace,
			want:      false,
		},
		{
			name:      "worse",
			current:   &game.Item{Kind: game.ItemWeapon, Name: "greatsword", AttackBonus: 6},
			candidate: mace,
			want:      false,
		},
		{name: "not a weapon", current: nil, candidate: game.Item{Kind: game.ItemGold, Amount: 3}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldAutoEquip(tc.current, tc.candidate); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
