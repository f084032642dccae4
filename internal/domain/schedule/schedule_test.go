package schedule

import (
	"fmt"
	"testing"
)

func playerIDs(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("p%d", i+1)
	}
	return ids
}

func TestBuild_EveryPairMeetsExactlyOnce(t *testing.T) {
	t.Parallel()

	for _, n := range []int{2, 3, 5, 8} {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()

			sch, err := Build(playerIDs(n), "parity")
			if err != nil {
				t.Fatalf("build: %v", err)
			}

			seen := make(map[[2]string]int)
			for _, round := range sch.Rounds {
				for _, m := range round.Matches {
					if m.IsBye {
						continue
					}
					key := [2]string{m.PlayerAID, m.PlayerBID}
					seen[key]++
				}
			}

			ids := playerIDs(n)
			for i := 0; i < len(ids); i++ {
				for j := i + 1; j < len(ids); j++ {
					a, b := ids[i], ids[j]
					if a > b {
						a, b = b, a
					}
					count := seen[[2]string{a, b}]
					if count != 1 {
						t.Fatalf("pair (%s,%s) met %d times, want exactly 1", a, b, count)
					}
				}
			}
		})
	}
}

func TestBuild_NoPlayerAppearsTwiceInARound(t *testing.T) {
	t.Parallel()

	for _, n := range []int{2, 3, 5, 8} {
		sch, err := Build(playerIDs(n), "parity")
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		for _, round := range sch.Rounds {
			appearances := make(map[string]int)
			for _, m := range round.Matches {
				if m.IsBye {
					continue
				}
				appearances[m.PlayerAID]++
				appearances[m.PlayerBID]++
			}
			for player, count := range appearances {
				if count > 1 {
					t.Fatalf("n=%d round=%s: player %s appears %d times", n, round.RoundID, player, count)
				}
			}
		}
	}
}

func TestBuild_RoundCountMatchesParity(t *testing.T) {
	t.Parallel()

	even, err := Build(playerIDs(4), "parity")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(even.Rounds) != 3 {
		t.Fatalf("expected 3 rounds for 4 players, got %d", len(even.Rounds))
	}

	odd, err := Build(playerIDs(5), "parity")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(odd.Rounds) != 5 {
		t.Fatalf("expected 5 rounds for 5 players (with BYE), got %d", len(odd.Rounds))
	}
}

func TestBuild_ByeMatchesAreCompletedWithNoWinner(t *testing.T) {
	t.Parallel()

	sch, err := Build(playerIDs(3), "parity")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	byeCount := 0
	for _, round := range sch.Rounds {
		for _, m := range round.Matches {
			if m.IsBye {
				byeCount++
				if m.State != MatchStateCompleted {
					t.Fatalf("expected BYE match to be COMPLETED at construction, got %s", m.State)
				}
			}
		}
	}
	if byeCount != 3 {
		t.Fatalf("expected exactly one BYE per round for 3 players, got %d total", byeCount)
	}
}

func TestBuild_MatchIDsAreDeterministicAndUnique(t *testing.T) {
	t.Parallel()

	sch, err := Build(playerIDs(6), "parity")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := make(map[string]bool)
	for roundIdx, round := range sch.Rounds {
		for pairIdx, m := range round.Matches {
			want := fmt.Sprintf("R%dM%d", roundIdx+1, pairIdx+1)
			if m.MatchID != want {
				t.Fatalf("expected match id %s, got %s", want, m.MatchID)
			}
			if seen[m.MatchID] {
				t.Fatalf("duplicate match id %s", m.MatchID)
			}
			seen[m.MatchID] = true
		}
	}
}

func TestBuild_SideAIsLexicographicallySmaller(t *testing.T) {
	t.Parallel()

	sch, err := Build(playerIDs(4), "parity")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, round := range sch.Rounds {
		for _, m := range round.Matches {
			if m.IsBye {
				continue
			}
			if m.PlayerAID >= m.PlayerBID {
				t.Fatalf("expected side A (%s) < side B (%s)", m.PlayerAID, m.PlayerBID)
			}
		}
	}
}

func TestBuild_RejectsFewerThanTwoPlayers(t *testing.T) {
	t.Parallel()

	if _, err := Build([]string{"p1"}, "parity"); err == nil {
		t.Fatalf("expected an error for fewer than two players")
	}
}
