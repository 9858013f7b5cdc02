package scoring

import (
	"errors"
	"regexp"
	"strings"

	"github.com/omics-os/leadengine/internal/entity"
)

var ErrMissingNaturalKey = errors.New("candidate has no natural key")

// struggling-user vocabulary matched against title + body
var noviceKeywords = []string{
	"beginner", "new", "help", "install", "installation", "error", "problem",
	"stuck", "confused", "how to", "tutorial", "guide", "basic", "simple",
	"start", "getting started", "first time", "newbie", "documentation",
	"can't", "cannot", "unable", "fail", "failed", "wrong", "issue",
	"struggling", "trouble", "difficulty", "please help", "need help",
	"not working", "broken", "fix", "solve", "solution",
}

var codeBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile("```[\\s\\S]*?```"),
	regexp.MustCompile("`[^`\n]+`"),
	regexp.MustCompile(`(?m)^    [^\n]+`),
	regexp.MustCompile(`(?m)^\s*[a-zA-Z_][a-zA-Z0-9_]*\s*=`),
	regexp.MustCompile(`import\s+\w+`),
	regexp.MustCompile(`from\s+\w+\s+import`),
}

// ExtractSignals turns one candidate record into a normalized signal bag.
// No side effects; fails only on malformed input.
func ExtractSignals(c entity.Candidate) (entity.Signals, error) {
	if c.NaturalKey == "" {
		return entity.Signals{}, ErrMissingNaturalKey
	}

	title := strings.ToLower(c.Title)
	body := strings.ToLower(c.Body)
	combined := title + " " + body

	var matched []string
	for _, kw := range noviceKeywords {
		if strings.Contains(combined, kw) {
			matched = append(matched, kw)
		}
	}

	labels := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		labels = append(labels, strings.ToLower(l))
	}

	sig := entity.Signals{
		AccountAgeDays: c.AccountAgeDays,
		Followers:      c.Followers,
		PublicRepos:    c.PublicRepos,
		BodyLength:     len(c.Body),
		Keywords:       matched,
		Labels:         labels,
	}

	if c.Body != "" {
		hasCode := false
		for _, p := range codeBlockPatterns {
			if p.MatchString(c.Body) {
				hasCode = true
				break
			}
		}
		sig.CodeBlocksPresent = &hasCode
	}

	if c.Title != "" {
		sig.PunctuationExcess = strings.Count(c.Title, "!")+strings.Count(c.Title, "?") > 2
	}

	return sig, nil
}
