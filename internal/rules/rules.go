// Package rules provides the default preference-rule evaluator. The
// natural-language preference parser proper is an external collaborator;
// this evaluator answers its contract from plain keyword lists so the core
// can run without it.
package rules

import "strings"

// KeywordEvaluator excludes or includes URLs by substring match against the
// URL and title. Empty lists mean "no opinion".
type KeywordEvaluator struct {
	ExcludeKeywords []string
	IncludeKeywords []string
}

// NewAllowAll returns an evaluator with no rules: nothing excluded, nothing
// force-included.
func NewAllowAll() *KeywordEvaluator {
	return &KeywordEvaluator{}
}

// ShouldExclude reports whether any exclude keyword matches the URL or
// title.
func (e *KeywordEvaluator) ShouldExclude(url, title string) bool {
	return matchesAny(url, title, e.ExcludeKeywords)
}

// ShouldInclude reports whether any include keyword matches the URL or
// title.
func (e *KeywordEvaluator) ShouldInclude(url, title string) bool {
	return matchesAny(url, title, e.IncludeKeywords)
}

func matchesAny(url, title string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lowerURL := strings.ToLower(url)
	lowerTitle := strings.ToLower(title)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(lowerURL, k) || strings.Contains(lowerTitle, k) {
			return true
		}
	}
	return false
}
