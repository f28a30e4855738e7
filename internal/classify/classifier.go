// Package classify scores free text against ordered, weighted keyword groups.
//
// The scorer knows nothing about medicine: the same code classifies modality
// and body part, driven only by the groups it is given.
package classify

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/pkg/types"
)

// MinTextLength is the trimmed rune count below which text is not classified
const MinTextLength = 10

// MaxConfidence caps the reported confidence; the engine never claims 100.
const MaxConfidence = 99

// Candidate is one positively scored group
type Candidate struct {
	Label           string   `json:"label"`
	Score           float64  `json:"score"`
	Share           float64  `json:"share"` // score / total of all candidates
	MatchedKeywords []string `json:"matched_keywords"`
	order           int
}

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

type compiledGroup struct {
	group    types.KeywordGroup
	matchers []keywordMatcher
}

// Classifier holds one table with its keyword matchers compiled
type Classifier struct {
	groups []compiledGroup
}

// New compiles a whole-word matcher per keyword. Labels are opaque here:
// they may repeat or contain any character. An empty table never matches.
func New(groups []types.KeywordGroup) (*Classifier, error) {
	c := &Classifier{groups: make([]compiledGroup, 0, len(groups))}
	for i, g := range groups {
		if err := patterns.ValidateGroup(g); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		cg := compiledGroup{group: g}
		for _, kw := range g.Keywords {
			re, err := WordPattern(kw)
			if err != nil {
				return nil, fmt.Errorf("compile keyword %q of %q: %w", kw, g.Label, err)
			}
			cg.matchers = append(cg.matchers, keywordMatcher{keyword: kw, re: re})
		}
		c.groups = append(c.groups, cg)
	}
	return c, nil
}

// MustNew is New for tables known to be valid, such as the defaults
func MustNew(groups []types.KeywordGroup) *Classifier {
	c, err := New(groups)
	if err != nil {
		panic(err)
	}
	return c
}

// Labels returns the group labels in configuration order
func (c *Classifier) Labels() []string {
	labels := make([]string, len(c.groups))
	for i, g := range c.groups {
		labels[i] = g.group.Label
	}
	return labels
}

// Classify returns the winning group for text, or nil when the text is too
// short or matches nothing. A nil result means "no detection", not failure.
func (c *Classifier) Classify(text string) *types.DetectionResult {
	ranked := c.Rank(text)
	if len(ranked) == 0 {
		return nil
	}

	best := ranked[0]
	return &types.DetectionResult{
		Label:           best.Label,
		Confidence:      confidence(best.Share),
		MatchedKeywords: best.MatchedKeywords,
	}
}

// Rank scores every group and returns the positive ones, best first.
// Equal scores keep configuration order.
func (c *Classifier) Rank(text string) []Candidate {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
		return nil
	}

	var candidates []Candidate
	total := 0.0
	for i, g := range c.groups {
		score := 0.0
		var matched []string
		seen := make(map[string]bool)

		for _, m := range g.matchers {
			count := len(m.re.FindAllStringIndex(text, -1))
			if count == 0 {
				continue
			}
			score += float64(count) * g.group.Weight
			if !seen[m.keyword] {
				seen[m.keyword] = true
				matched = append(matched, m.keyword)
			}
		}

		if score > 0 {
			candidates = append(candidates, Candidate{
				Label:           g.group.Label,
				Score:           score,
				MatchedKeywords: matched,
				order:           i,
			})
			total += score
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].order < candidates[j].order
	})

	for i := range candidates {
		candidates[i].Share = candidates[i].Score / total
	}
	return candidates
}

// Classify is a one-shot convenience for callers holding raw groups. A nil
// result with a nil error means no detection.
func Classify(text string, groups []types.KeywordGroup) (*types.DetectionResult, error) {
	c, err := New(groups)
	if err != nil {
		return nil, err
	}
	return c.Classify(text), nil
}

// WordPattern compiles a case-insensitive whole-word matcher for a literal
// string. The literal is escaped, so user-chosen strings cannot inject
// pattern syntax.
func WordPattern(literal string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(literal) + `\b`)
}

func confidence(share float64) int {
	pct := int(math.Round(share * 100))
	if pct > MaxConfidence {
		return MaxConfidence
	}
	return pct
}
