package session

import (
	"testing"
	"time"

	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/pkg/types"
)

func dmCmd(t *testing.T, s *Session, dmOut chan types.ServerMessage, seq int, cmd DmCommand) {
	t.Helper()
	s.Inbox() <- FromDM{UserID: dmID, Seq: seq, Cmd: cmd}
	msg := recvType(t, dmOut, types.MsgAck, time.Second)
	if msg.Seq != seq {
		t.Fatalf("ack seq: want %d, got %d", seq, msg.Seq)
	}
}

func TestDm_GrantWeaponEquipsTarget(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, GrantWeapon{
		TargetUserID: "u1",
		Weapon:       game.Item{Name: "longsword", AttackBonus: 3},
	})

	v := getView(t, s)
	if v.Version != 2 {
		t.Fatalf("grant should commit one version, got %d", v.Version)
	}
	u := v.State.Unit("player-u1")
	if u.Weapon == nil || u.Weapon.Name != "longsword" || u.Weapon.Kind != game.ItemWeapon {
		t.Fatalf("weapon not equipped: %+v", u.Weapon)
	}
}

func TestDm_GrantGoldAndXp(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, GrantGold{Amount: 25})
	dmCmd(t, s, dmOut, 3, GrantXp{TargetUserID: "u2", Amount: 50})

	v := getView(t, s)
	if v.Version != 3 {
		t.Fatalf("two grants, want version 3, got %d", v.Version)
	}
	found := false
	for _, it := range v.State.Inventory {
		if it.Kind == game.ItemGold && it.Amount == 25 {
			found = true
		}
	}
	if !found {
		t.Fatalf("gold missing from party inventory: %+v", v.State.Inventory)
	}
	if xp := v.State.Unit("player-u2").XP; xp != 50 {
		t.Fatalf("xp: want 50, got %d", xp)
	}
}

func TestDm_SpawnModifyRemoveMonster(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, SpawnMonster{Name: "ogre", Position: game.Position{X: 5, Y: 5}, HP: 8, AttackBonus: 2})

	v := getView(t, s)
	var spawned string
	for i := range v.State.Units {
		if v.State.Units[i].Team == game.TeamMonsters {
			spawned = v.State.Units[i].ID
		}
	}
	if spawned == "" {
		t.Fatal("monster not spawned")
	}
	inOrder := false
	for _, id := range v.State.Combat.InitiativeOrder {
		if id == spawned {
			inOrder = true
		}
	}
	if !inOrder {
		t.Fatalf("spawned monster missing from initiative order: %v", v.State.Combat.InitiativeOrder)
	}

	hp, bonus := 12, 4
	dmCmd(t, s, dmOut, 3, ModifyMonster{UnitID: spawned, HP: &hp, AttackBonus: &bonus})
	v = getView(t, s)
	if u := v.State.Unit(spawned); u.HP != 12 || u.MaxHP != 12 || u.AttackBonus != 4 {
		t.Fatalf("modify didn't stick: %+v", u)
	}

	dmCmd(t, s, dmOut, 4, RemoveMonster{UnitID: spawned})
	v = getView(t, s)
	if v.State.Unit(spawned) != nil {
		t.Fatal("monster still on the board after remove")
	}
	for _, id := range v.State.Combat.InitiativeOrder {
		if id == spawned {
			t.Fatal("removed monster still in initiative order")
		}
	}
	// Removing the last monster is not a defeat of them; combat goes on.
	if v.Status != StatusPlaying {
		t.Fatalf("remove_monster ended the game: %s", v.Status)
	}
}

func TestDm_RemoveCurrentMonsterReseatsTurn(t *testing.T) {
	s, _ := newTestSession(t, Config{MonsterDelay: 500 * time.Millisecond})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, SpawnMonster{Name: "ogre", Position: game.Position{X: 5, Y: 5}, HP: 8})
	dmCmd(t, s, dmOut, 3, SkipTurn{})
	dmCmd(t, s, dmOut, 4, SkipTurn{})

	v := getView(t, s)
	monster := v.CurrentUnit
	if v.State.Unit(monster).Team != game.TeamMonsters {
		t.Fatalf("setup: expected a monster's turn, got %q", monster)
	}

	drainAll(dmOut)
	s.Inbox() <- FromDM{UserID: dmID, Seq: 5, Cmd: RemoveMonster{UnitID: monster}}
	tc := recvType(t, dmOut, types.MsgTurnChange, time.Second)
	if tc.UnitID != "player-u1" {
		t.Fatalf("removing the current monster should hand the turn to player-u1, got %q", tc.UnitID)
	}
	after := getView(t, s)
	if after.CurrentUnit != "player-u1" {
		t.Fatalf("current unit after removal: %q", after.CurrentUnit)
	}

	// The delay timer armed for the removed monster must not fire against
	// player-u1's inherited turn.
	recvNone(t, dmOut, types.MsgTurnChange, 700*time.Millisecond)
	v = getView(t, s)
	if v.Version != after.Version || v.CurrentUnit != "player-u1" {
		t.Fatalf("stale monster timer fired: version %d -> %d, current %q", after.Version, v.Version, v.CurrentUnit)
	}
}

func TestDm_SkipTurnRoundWrapTriggersFullSync(t *testing.T) {
	s, _ := newTestSession(t, Config{FullSyncEveryRounds: 1})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	u2 := join(t, s, "u2")
	startGame(t, s, dmOut)
	drainAll(u2)

	dmCmd(t, s, dmOut, 2, SkipTurn{})
	dmCmd(t, s, dmOut, 3, SkipTurn{}) // wraps the round

	snap := recvType(t, u2, types.MsgFullSnapshot, time.Second)
	if snap.Snapshot == nil || snap.Snapshot.Version != 3 {
		t.Fatalf("round-wrap skip should trigger a full sync at version 3, got %+v", snap.Snapshot)
	}
}

func TestDm_RemoveMonsterRejectsPlayerUnits(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	s.Inbox() <- FromDM{UserID: dmID, Seq: 5, Cmd: RemoveMonster{UnitID: "player-u1"}}
	msg := recvType(t, dmOut, types.MsgError, time.Second)
	if msg.Code != "INVALID_UNIT" {
		t.Fatalf("want INVALID_UNIT, got %+v", msg)
	}
}

func TestDm_SkipTurn(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	u1 := join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, SkipTurn{})
	v := getView(t, s)
	if v.CurrentUnit != "player-u2" {
		t.Fatalf("skip should advance to player-u2, got %q", v.CurrentUnit)
	}
	if v.Version != 2 {
		t.Fatalf("skip should commit one version, got %d", v.Version)
	}

	s.Inbox() <- FromDM{UserID: "u1", Seq: 6, Cmd: SkipTurn{}}
	msg := recvType(t, u1, types.MsgError, time.Second)
	if msg.Code != "NOT_DM" {
		t.Fatalf("want NOT_DM, got %+v", msg)
	}
}

func TestDm_KickPlayer(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	dmCmd(t, s, dmOut, 2, KickPlayer{TargetUserID: "u2"})

	v := getView(t, s)
	if len(v.Players) != 1 || v.Players[0].UserID != "u1" {
		t.Fatalf("roster after kick: %+v", v.Players)
	}
	if v.State.Unit("player-u2") != nil {
		t.Fatal("kicked player's unit still on the board")
	}
	for _, id := range v.State.Combat.InitiativeOrder {
		if id == "player-u2" {
			t.Fatal("kicked player still in initiative order")
		}
	}
}

func TestDm_EndGameIsTerminal(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	dmOut := join(t, s, dmID)
	u1 := join(t, s, "u1")
	join(t, s, "u2")
	startGame(t, s, dmOut)

	drainAll(dmOut)
	s.Inbox() <- FromDM{UserID: dmID, Seq: 2, Cmd: EndGame{Result: "called by dm"}}
	ended := recvType(t, dmOut, types.MsgGameEnded, time.Second)
	if ended.Result != "called by dm" {
		t.Fatalf("result: got %q", ended.Result)
	}
	if v := getView(t, s); v.Status != StatusEnded {
		t.Fatalf("status: want ended, got %s", v.Status)
	}

	s.Inbox() <- FromClient{UserID: "u1", Seq: 3, Action: game.Action{Type: game.ActionEndTurn}}
	msg := recvType(t, u1, types.MsgError, time.Second)
	if msg.Code != "GAME_NOT_STARTED" {
		t.Fatalf("actions after end: want GAME_NOT_STARTED, got %+v", msg)
	}

	s.Inbox() <- FromDM{UserID: dmID, Seq: 4, Cmd: ResumeGame{}}
	msg = recvType(t, dmOut, types.MsgError, time.Second)
	if msg.Code != "GAME_NOT_STARTED" {
		t.Fatalf("ended is terminal, got %+v", msg)
	}
}
