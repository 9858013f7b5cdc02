package persona

import (
	"strings"

	"github.com/omics-os/leadengine/internal/entity"
)

// Route picks exactly one persona for a qualified lead. Source/repo tags are
// the strong signal, keyword overlap with the lead's matched signals breaks
// ties. Routing never fails: no match falls back to the default persona so
// the pipeline is never blocked here.
func (r *Registry) Route(lead *entity.Lead) entity.Persona {
	repo := strings.ToLower(lead.Repo)
	combined := strings.ToLower(lead.Title) + " " + strings.Join(lead.Signals.Keywords, " ") +
		" " + strings.Join(lead.Signals.Labels, " ")

	var best entity.Persona
	bestScore := 0
	for _, p := range r.personas {
		score := 0
		for _, src := range p.Sources {
			if strings.EqualFold(src, lead.Source) {
				score += 2
				break
			}
		}
		for _, pr := range p.Repos {
			if pr != "" && strings.Contains(repo, strings.ToLower(pr)) {
				score += 2
				break
			}
		}
		for _, kw := range p.Keywords {
			if kw != "" && strings.Contains(combined, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = p
		}
	}

	if bestScore == 0 {
		return r.Default()
	}
	return best
}
