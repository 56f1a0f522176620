// Package canonical normalizes URLs into a canonical form used as the
// identity key for duplicate detection and content hashing.
package canonical

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that carry analytics, ad-click,
// affiliate, or marketing-automation identifiers rather than resource
// identity. Matched exactly or, for the prefixed families, by prefix.
var trackingParams = map[string]struct{}{
	"gclid":       {},
	"gclsrc":      {},
	"dclid":       {},
	"fbclid":      {},
	"msclkid":     {},
	"twclid":      {},
	"igshid":      {},
	"mc_cid":      {},
	"mc_eid":      {},
	"mkt_tok":     {},
	"ref":         {},
	"ref_src":     {},
	"ref_url":     {},
	"referrer":    {},
	"affiliate":   {},
	"aff_id":      {},
	"click_id":    {},
	"yclid":       {},
	"_hsenc":      {},
	"_hsmi":       {},
	"vero_id":     {},
	"wickedid":    {},
	"oly_anon_id": {},
	"oly_enc_id":  {},
	"s_cid":       {},
	"ncid":        {},
	"cmpid":       {},
	"spm":         {},
}

// trackingPrefixes match whole parameter families, e.g. utm_source,
// utm_campaign, pk_campaign.
var trackingPrefixes = []string{"utm_", "pk_", "piwik_", "matomo_", "hsa_", "oly_"}

// IsTrackingParam reports whether a query parameter name is on the tracking
// denylist.
func IsTrackingParam(name string) bool {
	name = strings.ToLower(name)
	if _, ok := trackingParams[name]; ok {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Canonicalize returns the canonical form of raw. It is deterministic,
// idempotent, and total: unparseable input is returned unchanged rather than
// producing an error, which degrades duplicate-detection recall but never
// fails a job.
func Canonicalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	// Strip tracking parameters and re-serialize the rest sorted by key.
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if IsTrackingParam(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	u.RawQuery = b.String()

	// A single trailing slash is representation, not identity. The bare root
	// stays "/".
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawPath = ""

	// Fragments are dropped except single-page-app routes ("#/..."), which
	// are part of the resource identity.
	if !strings.HasPrefix(u.Fragment, "/") {
		u.Fragment = ""
		u.RawFragment = ""
	}

	return u.String()
}

// ContentHash returns a deterministic hash of the canonical form of raw. Any
// two URLs with equal canonical forms hash identically and are treated as
// duplicates.
func ContentHash(raw string) string {
	sum := sha256.Sum256([]byte(Canonicalize(raw)))
	return fmt.Sprintf("%x", sum)
}

// Domain returns the canonical hostname of raw, or "" if it cannot be
// parsed.
func Domain(raw string) string {
	u, err := url.Parse(Canonicalize(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
