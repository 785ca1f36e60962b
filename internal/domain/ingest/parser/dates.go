package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
)

// layoutsByConvention lists the layouts tried per broker date convention,
// most specific first.
var layoutsByConvention = map[broker.DateConvention][]string{
	broker.DateISO: {
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02",
	},
	broker.DateDMY: {
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"02/01/2006",
		"02.01.2006",
	},
	broker.DateMDY: {
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
		"01/02/2006",
	},
	broker.DateDMYDash: {
		"02-01-2006 15:04",
		"02-01-2006",
	},
}

// ParseDate converts a raw cell value into an ISO-8601 (RFC 3339) timestamp
// using the broker's declared convention. Exported because the embedded
// fallback parsers share the same date semantics by contract.
func ParseDate(conv broker.DateConvention, raw string) (string, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range layoutsByConvention[conv] {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}

	// ISO is the lingua franca of exchange exports; accept it for any
	// convention before giving up.
	if conv != broker.DateISO {
		for _, layout := range layoutsByConvention[broker.DateISO] {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
	}

	return "", fmt.Errorf("unrecognized date %q", raw)
}
