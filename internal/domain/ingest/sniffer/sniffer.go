// Package sniffer infers which broker produced an export by inspecting its
// header line. Detection is a weak generic guess corrected by an ordered
// table of override rules; it is deterministic and never fails, the worst
// case is broker.Unknown.
package sniffer

import (
	"strings"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
)

// SampleSize is the number of leading bytes worth inspecting. The header
// line carries the whole signal; anything past ~2KB is data rows.
const SampleSize = 2048

// Detect returns the broker id for a raw text sample, or broker.Unknown.
func Detect(sample string) string {
	return DetectWithRules(sample, broker.SignatureRules())
}

// DetectWithRules runs detection against an explicit rule table. Split out so
// tests can pin the precedence order as data.
func DetectWithRules(sample string, rules []broker.SignatureRule) string {
	header := headerLine(sample)
	if header == "" {
		return broker.Unknown
	}

	// Weak baseline first. Several brokers share the Date/Type/Price
	// vocabulary, so this guess is frequently wrong on purpose; the rule
	// table below is what actually decides.
	guess := genericGuess(header)

	for _, rule := range rules {
		if ruleMatches(header, rule) {
			return rule.Broker
		}
	}
	return guess
}

func ruleMatches(header string, rule broker.SignatureRule) bool {
	for _, pat := range rule.Require {
		if !strings.Contains(header, pat) {
			return false
		}
	}
	for _, pat := range rule.Forbid {
		if strings.Contains(header, pat) {
			return false
		}
	}
	return true
}

// genericGuess keys on coarse column shapes shared by several brokers.
func genericGuess(header string) string {
	switch {
	case strings.Contains(header, "product") && strings.Contains(header, "action"):
		return broker.Degiro
	case strings.Contains(header, "symbol"):
		return broker.IBKR
	case strings.Contains(header, "date") &&
		strings.Contains(header, "type") &&
		strings.Contains(header, "price"):
		// Overlapping vocabulary: Revolut, Binance, Coinbase and DEGIRO all
		// qualify. DEGIRO is the historical default for this shape.
		return broker.Degiro
	default:
		return broker.Unknown
	}
}

// headerLine extracts the first non-empty line of the sample, lowercased,
// with BOM and carriage returns stripped.
func headerLine(sample string) string {
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	sample = strings.TrimPrefix(sample, "\uFEFF")
	for _, line := range strings.Split(sample, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line != "" {
			return strings.ToLower(line)
		}
	}
	return ""
}
