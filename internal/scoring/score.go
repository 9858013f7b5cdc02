package scoring

// Qualification scoring. Pure, deterministic, no I/O. The weights are load
// bearing: downstream selection assumes the documented increments, do not
// retune without recomputing stored scores.

import "github.com/omics-os/leadengine/internal/entity"

var noviceLabels = map[string]bool{
	"question":      true,
	"help wanted":   true,
	"usage":         true,
	"documentation": true,
	"beginner":      true,
}

// Score maps a signal bag to [0,1]. Higher means more likely a struggling
// newcomer worth contacting.
func Score(s entity.Signals) float64 {
	score := 0.0

	if s.AccountAgeDays != nil && *s.AccountAgeDays < 365 {
		score += 0.2
	}
	if s.Followers != nil && *s.Followers < 5 {
		score += 0.2
	}
	if s.PublicRepos != nil && *s.PublicRepos < 5 {
		score += 0.1
	}
	if len(s.Keywords) > 0 {
		score += 0.2
	}
	// only an explicit "no code present" counts; nil means unknown
	if s.CodeBlocksPresent != nil && !*s.CodeBlocksPresent {
		score += 0.1
	}
	for _, label := range s.Labels {
		if noviceLabels[label] {
			score += 0.1
			break
		}
	}
	if s.BodyLength > 0 && s.BodyLength < 400 {
		score += 0.1
	}
	if s.PunctuationExcess {
		score += 0.05
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

// Qualifies gates on both the threshold and a resolvable contact address.
// Score alone never qualifies a lead.
func Qualifies(s entity.Signals, email string, threshold float64) bool {
	return Score(s) >= threshold && email != ""
}
