// Package standings computes league standings on demand from completed
// match results, per spec.md §3.6: points desc, then a three-stage
// tiebreak cascade (head-to-head, game-round differential, PlayerID).
package standings

import "sort"

// MatchOutcome is the minimal record standings computation needs from
// one completed, non-BYE Match: which two players played, who won (nil
// for a draw), and each side's game-round win count (for the
// differential tiebreak).
type MatchOutcome struct {
	PlayerAID    string
	PlayerBID    string
	WinnerID     *string
	RoundsWonA   int
	RoundsWonB   int
}

// Row is one ranked standings entry.
type Row struct {
	PlayerID string
	Wins     int
	Losses   int
	Draws    int
	Points   int
	Rank     int
}

// PointRules configures the immutable points-per-outcome scheme chosen
// at league creation (spec.md §3.6).
type PointRules struct {
	Win  int
	Draw int
}

// Compute derives the ranked standings for playerIDs from outcomes.
// Players with no recorded outcomes still appear, ranked last among
// equals (0 points).
func Compute(playerIDs []string, outcomes []MatchOutcome, rules PointRules) []Row {
	rows := make(map[string]*Row, len(playerIDs))
	for _, id := range playerIDs {
		rows[id] = &Row{PlayerID: id}
	}

	headToHead := make(map[string]map[string]int) // winner -> loser -> wins
	roundDiff := make(map[string]int)

	addHeadToHead := func(winner, loser string) {
		if headToHead[winner] == nil {
			headToHead[winner] = make(map[string]int)
		}
		headToHead[winner][loser]++
	}

	for _, o := range outcomes {
		a := rows[o.PlayerAID]
		b := rows[o.PlayerBID]
		roundDiff[o.PlayerAID] += o.RoundsWonA - o.RoundsWonB
		roundDiff[o.PlayerBID] += o.RoundsWonB - o.RoundsWonA

		switch {
		case o.WinnerID == nil:
			if a != nil {
				a.Draws++
				a.Points += rules.Draw
			}
			if b != nil {
				b.Draws++
				b.Points += rules.Draw
			}
		case *o.WinnerID == o.PlayerAID:
			if a != nil {
				a.Wins++
				a.Points += rules.Win
			}
			if b != nil {
				b.Losses++
			}
			addHeadToHead(o.PlayerAID, o.PlayerBID)
		case *o.WinnerID == o.PlayerBID:
			if b != nil {
				b.Wins++
				b.Points += rules.Win
			}
			if a != nil {
				a.Losses++
			}
			addHeadToHead(o.PlayerBID, o.PlayerAID)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}

	sortBase(out, roundDiff)
	rerankTiedGroupsByHeadToHead(out, headToHead, roundDiff)
	assignRanks(out)
	return out
}

// sortBase orders by points desc, then game-round differential desc,
// then PlayerID asc — the fallback ordering used both as the initial
// sort and inside a tied-points group once head-to-head is exhausted.
func sortBase(rows []Row, roundDiff map[string]int) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if d := roundDiff[rows[i].PlayerID] - roundDiff[rows[j].PlayerID]; d != 0 {
			return d > 0
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
}

func rerankTiedGroupsByHeadToHead(rows []Row, headToHead map[string]map[string]int, roundDiff map[string]int) {
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && rows[end].Points == rows[start].Points {
			end++
		}
		if end-start > 1 {
			rerankGroup(rows[start:end], headToHead, roundDiff)
		}
		start = end
	}
}

// rerankGroup applies head-to-head wins among just the tied group, then
// falls back to game-round differential, then PlayerID.
func rerankGroup(group []Row, headToHead map[string]map[string]int, roundDiff map[string]int) {
	memberWins := make(map[string]int, len(group))
	for _, row := range group {
		for _, other := range group {
			if other.PlayerID == row.PlayerID {
				continue
			}
			memberWins[row.PlayerID] += headToHead[row.PlayerID][other.PlayerID]
		}
	}

	sort.SliceStable(group, func(i, j int) bool {
		if memberWins[group[i].PlayerID] != memberWins[group[j].PlayerID] {
			return memberWins[group[i].PlayerID] > memberWins[group[j].PlayerID]
		}
		if d := roundDiff[group[i].PlayerID] - roundDiff[group[j].PlayerID]; d != 0 {
			return d > 0
		}
		return group[i].PlayerID < group[j].PlayerID
	})
}

func assignRanks(rows []Row) {
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
