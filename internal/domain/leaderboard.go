package domain

import "sort"

// ScoreSnapshot pairs a user with their current green score.
type ScoreSnapshot struct {
	UserID     string
	GreenScore float64
}

// RankedEntry is one row of the ranked leaderboard.
type RankedEntry struct {
	UserID     string
	GreenScore float64
	Rank       int
}

// Rank orders snapshots by green score descending, breaking ties by user ID
// ascending so two runs over the same input produce the same order. Ranks use
// standard competition ranking: tied scores share a rank and the next distinct
// score skips the tied count (900, 900, 800 ranks as 1, 1, 3). The input slice
// is not mutated.
func Rank(snapshots []ScoreSnapshot) []RankedEntry {
	ordered := make([]ScoreSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].GreenScore != ordered[j].GreenScore {
			return ordered[i].GreenScore > ordered[j].GreenScore
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	out := make([]RankedEntry, len(ordered))
	for i, snap := range ordered {
		rank := i + 1
		if i > 0 && snap.GreenScore == ordered[i-1].GreenScore {
			rank = out[i-1].Rank
		}
		out[i] = RankedEntry{UserID: snap.UserID, GreenScore: snap.GreenScore, Rank: rank}
	}
	return out
}
