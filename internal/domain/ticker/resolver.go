// Package ticker resolves free-text instrument names ("Apple Inc") to
// exchange tickers ("AAPL"). The curated table is injected, immutable
// configuration; resolution layers an exact lookup, an Aho-Corasick
// substring scan and a bounded Levenshtein pass before giving up and
// returning the uppercased input.
package ticker

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxEditDistance bounds the fuzzy pass. Two edits covers the typos seen in
// real exports ("Appel Inc") without letting unrelated names collide.
const maxEditDistance = 2

// Resolver maps instrument names to tickers. Safe for concurrent use; it is
// never mutated after construction.
type Resolver struct {
	exact   map[string]string
	names   []string
	tickers []string
	matcher *ahocorasick.Matcher
}

// NewResolver builds a resolver from a name→ticker table. Keys are
// normalized once at construction.
func NewResolver(table map[string]string) *Resolver {
	r := &Resolver{
		exact:   make(map[string]string, len(table)),
		names:   make([]string, 0, len(table)),
		tickers: make([]string, 0, len(table)),
	}
	for name, sym := range table {
		norm := normalize(name)
		if norm == "" {
			continue
		}
		r.exact[norm] = sym
		r.names = append(r.names, norm)
		r.tickers = append(r.tickers, sym)
	}
	if len(r.names) > 0 {
		r.matcher = ahocorasick.NewStringMatcher(r.names)
	}
	return r
}

// Default returns a resolver over the curated table of names observed in
// DEGIRO and eToro exports.
func Default() *Resolver {
	return NewResolver(curatedNames)
}

// Resolve returns the ticker for a free-text name. The boolean reports
// whether a curated mapping was found; when false the uppercased free text
// is returned as-is.
func (r *Resolver) Resolve(name string) (string, bool) {
	norm := normalize(name)
	if norm == "" {
		return "", false
	}

	if sym, ok := r.exact[norm]; ok {
		return sym, true
	}

	// Substring scan: catches decorated names like "APPLE INC - COMMON STOCK".
	if r.matcher != nil {
		hits := r.matcher.Match([]byte(norm))
		best := -1
		for _, idx := range hits {
			if best == -1 || len(r.names[idx]) > len(r.names[best]) {
				best = idx
			}
		}
		if best >= 0 {
			return r.tickers[best], true
		}
	}

	// Bounded edit distance for misspellings.
	bestIdx, bestDist := -1, maxEditDistance+1
	for i, candidate := range r.names {
		d := fuzzy.LevenshteinDistance(norm, candidate)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx >= 0 && bestDist <= maxEditDistance {
		return r.tickers[bestIdx], true
	}

	return strings.ToUpper(strings.TrimSpace(name)), false
}

func normalize(name string) string {
	norm := strings.ToUpper(strings.TrimSpace(name))
	norm = strings.Join(strings.Fields(norm), " ")
	for _, suffix := range []string{".", ","} {
		norm = strings.ReplaceAll(norm, suffix, "")
	}
	return norm
}

// curatedNames is the seed table. Grown from support tickets, not
// exhaustive; unmapped names fall through to the uppercased free text.
var curatedNames = map[string]string{
	"Apple Inc":                  "AAPL",
	"Microsoft Corporation":      "MSFT",
	"Microsoft Corp":             "MSFT",
	"Alphabet Inc":               "GOOGL",
	"Amazon.com Inc":             "AMZN",
	"Tesla Inc":                  "TSLA",
	"Meta Platforms Inc":         "META",
	"NVIDIA Corporation":         "NVDA",
	"Netflix Inc":                "NFLX",
	"Advanced Micro Devices Inc": "AMD",
	"Intel Corporation":          "INTC",
	"Coca-Cola Company":          "KO",
	"Johnson & Johnson":          "JNJ",
	"JPMorgan Chase & Co":        "JPM",
	"Visa Inc":                   "V",
	"Walt Disney Company":        "DIS",
	"PayPal Holdings Inc":        "PYPL",
	"Airbnb Inc":                 "ABNB",
	"Vanguard S&P 500 UCITS ETF": "VUSA",
	"iShares Core MSCI World":    "IWDA",
	"ASML Holding NV":            "ASML",
	"Adyen NV":                   "ADYEN",
	"Shell PLC":                  "SHEL",
	"Unilever PLC":               "ULVR",
}
