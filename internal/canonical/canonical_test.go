package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips tracking params and www and trailing slash",
			input: "https://www.example.com/page/?utm_source=x&id=123",
			want:  "https://example.com/page?id=123",
		},
		{
			name:  "sorts query params",
			input: "https://example.com/a?b=2&a=1",
			want:  "https://example.com/a?a=1&b=2",
		},
		{
			name:  "lowercases host",
			input: "https://EXAMPLE.com/Path",
			want:  "https://example.com/Path",
		},
		{
			name:  "root path normalizes to slash",
			input: "https://example.com",
			want:  "https://example.com/",
		},
		{
			name:  "drops plain fragment",
			input: "https://example.com/page#section-2",
			want:  "https://example.com/page",
		},
		{
			name:  "keeps spa route fragment",
			input: "https://example.com/app#/inbox/42",
			want:  "https://example.com/app#/inbox/42",
		},
		{
			name:  "strips gclid and fbclid",
			input: "https://example.com/p?gclid=abc&fbclid=def&q=go",
			want:  "https://example.com/p?q=go",
		},
		{
			name:  "unparseable input returned unchanged",
			input: "not a url at all",
			want:  "not a url at all",
		},
		{
			name:  "relative url returned unchanged",
			input: "/just/a/path",
			want:  "/just/a/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.input))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com/page/?utm_source=x&id=123",
		"https://Example.COM/a/b/?z=1&a=2#frag",
		"https://example.com/app#/route",
		"https://news.ycombinator.com/item?id=1",
		"garbage::/input",
		"https://example.com",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "not idempotent for %q", in)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("https://www.example.com/page/?utm_source=x&id=123")
	b := ContentHash("https://example.com/page?id=123&utm_campaign=y")
	assert.Equal(t, a, b, "canonically equal URLs must hash equally")

	c := ContentHash("https://example.com/other")
	assert.NotEqual(t, a, c)

	require.Len(t, a, 64)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://www.example.com/page"))
	assert.Equal(t, "news.example.com", Domain("https://news.example.com"))
	assert.Equal(t, "", Domain("not a url"))
}

func TestIsTrackingParam(t *testing.T) {
	assert.True(t, IsTrackingParam("utm_source"))
	assert.True(t, IsTrackingParam("UTM_CAMPAIGN"))
	assert.True(t, IsTrackingParam("gclid"))
	assert.True(t, IsTrackingParam("mc_eid"))
	assert.False(t, IsTrackingParam("id"))
	assert.False(t, IsTrackingParam("q"))
}
