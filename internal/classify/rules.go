package classify

// DefaultRules returns the built-in categorization rule set. Rules are
// evaluated in declaration order; on a confidence tie the earlier rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:      "development",
			Domains:       []string{"github.com", "gitlab.com", "bitbucket.org", "stackoverflow.com", "go.dev", "pkg.go.dev", "npmjs.com", "crates.io", "developer.mozilla.org"},
			URLKeywords:   []string{"github", "gitlab", "stackoverflow", "docs/api", "/api/", "developer", "sdk"},
			TitleKeywords: []string{"api", "sdk", "documentation", "programming", "library", "framework", "tutorial"},
			Confidence:    0.95,
		},
		{
			Category:      "shopping",
			Domains:       []string{"amazon.com", "ebay.com", "etsy.com", "aliexpress.com", "walmart.com", "target.com", "bestbuy.com"},
			URLKeywords:   []string{"amazon", "/dp/", "/product/", "cart", "checkout", "shop"},
			TitleKeywords: []string{"buy", "price", "deal", "sale", "order", "shop"},
			Confidence:    0.90,
		},
		{
			Category:      "news",
			Domains:       []string{"nytimes.com", "theguardian.com", "bbc.com", "bbc.co.uk", "reuters.com", "apnews.com", "news.ycombinator.com", "washingtonpost.com"},
			URLKeywords:   []string{"/news/", "/article/", "/story/", "breaking"},
			TitleKeywords: []string{"news", "breaking", "report", "headline"},
			Confidence:    0.90,
		},
		{
			Category:      "social",
			Domains:       []string{"twitter.com", "x.com", "reddit.com", "facebook.com", "instagram.com", "linkedin.com", "mastodon.social", "bsky.app"},
			URLKeywords:   []string{"/status/", "/r/", "/profile/", "thread"},
			TitleKeywords: []string{"thread", "post", "comments"},
			Confidence:    0.85,
		},
		{
			Category:      "video",
			Domains:       []string{"youtube.com", "youtu.be", "vimeo.com", "twitch.tv", "netflix.com"},
			URLKeywords:   []string{"/watch", "/video/", "stream"},
			TitleKeywords: []string{"video", "watch", "episode", "stream"},
			Confidence:    0.90,
		},
		{
			Category:      "finance",
			Domains:       []string{"bloomberg.com", "ft.com", "wsj.com", "coinbase.com", "fidelity.com", "vanguard.com", "bankofamerica.com", "chase.com"},
			URLKeywords:   []string{"/markets/", "/invest", "banking", "stocks", "crypto"},
			TitleKeywords: []string{"market", "stock", "invest", "bank", "crypto", "finance"},
			Confidence:    0.85,
		},
		{
			Category:      "reference",
			Domains:       []string{"wikipedia.org", "wiktionary.org", "britannica.com", "archive.org", "arxiv.org"},
			URLKeywords:   []string{"/wiki/", "encyclopedia", "/abs/", "reference"},
			TitleKeywords: []string{"wikipedia", "encyclopedia", "definition", "paper"},
			Confidence:    0.90,
		},
		{
			Category:      "productivity",
			Domains:       []string{"docs.google.com", "notion.so", "trello.com", "asana.com", "linear.app", "calendar.google.com", "slack.com"},
			URLKeywords:   []string{"/document/", "/board/", "workspace", "calendar"},
			TitleKeywords: []string{"doc", "board", "task", "meeting", "calendar"},
			Confidence:    0.85,
		},
	}
}
