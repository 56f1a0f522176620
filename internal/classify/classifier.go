// Package classify assigns topical categories to bookmarks from a static
// rule set.
package classify

import (
	"strings"

	"github.com/undergrove/marktend/internal/canonical"
	"github.com/undergrove/marktend/internal/model"
)

// Scoring weights. A domain hit is the strongest signal; URL and title
// keywords reinforce it. The accumulated score is capped at 1.0 before the
// rule's base confidence scales it.
const (
	domainWeight       = 0.60
	urlKeywordWeight   = 0.25
	titleKeywordWeight = 0.25

	// AcceptanceThreshold is the minimum confidence at which callers may
	// commit a category. Results below it must not overwrite an existing
	// category.
	AcceptanceThreshold = 0.5
)

// Rule is one immutable categorization rule: a category label plus the
// domains and keywords that vote for it.
type Rule struct {
	Category      string
	Domains       []string
	URLKeywords   []string
	TitleKeywords []string
	Confidence    float64 // base confidence scaling the accumulated score
}

// Match is a classification result.
type Match struct {
	Category   string
	Confidence float64
}

// Accepted reports whether the match clears the acceptance threshold.
func (m Match) Accepted() bool {
	return m.Confidence >= AcceptanceThreshold
}

type compiledRule struct {
	category      string
	domains       []string
	urlKeywords   []string
	titleKeywords []string
	confidence    float64
}

// Classifier evaluates bookmarks against a compiled rule set. It is
// immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []compiledRule
}

// New builds a classifier from the given rules, preserving declaration
// order.
func New(rules []Rule) *Classifier {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{
			category:   r.Category,
			confidence: r.Confidence,
		}
		for _, d := range r.Domains {
			cr.domains = append(cr.domains, strings.ToLower(strings.TrimSpace(d)))
		}
		for _, k := range r.URLKeywords {
			cr.urlKeywords = append(cr.urlKeywords, strings.ToLower(k))
		}
		for _, k := range r.TitleKeywords {
			cr.titleKeywords = append(cr.titleKeywords, strings.ToLower(k))
		}
		compiled = append(compiled, cr)
	}
	return &Classifier{rules: compiled}
}

// NewDefault builds a classifier over the built-in rule set.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify scores the bookmark against every rule and returns the best
// match. It is a pure function of its input: the same bookmark always yields
// the same result. When no rule matches it returns the uncategorized match
// with zero confidence.
func (c *Classifier) Classify(b model.Bookmark) Match {
	host := canonical.Domain(b.URL)
	lowerURL := strings.ToLower(b.URL)
	lowerTitle := strings.ToLower(b.Title)

	best := Match{Category: model.CategoryUncategorized}
	for _, r := range c.rules {
		score := 0.0
		if host != "" && domainMatches(host, r.domains) {
			score += domainWeight
		}
		if containsAny(lowerURL, r.urlKeywords) {
			score += urlKeywordWeight
		}
		if lowerTitle != "" && containsAny(lowerTitle, r.titleKeywords) {
			score += titleKeywordWeight
		}
		if score == 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		confidence := score * r.confidence
		// Strictly greater: ties go to the earlier rule.
		if confidence > best.Confidence {
			best = Match{Category: r.category, Confidence: confidence}
		}
	}
	return best
}

func domainMatches(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}
