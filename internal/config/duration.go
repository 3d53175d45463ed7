package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationToken = regexp.MustCompile(`(\d+(?:\.\d*)?|\.\d+)([a-zA-Zµ]+)`)

// ParseDuration accepts Go duration strings plus "d" (24h) and "w" (7d)
// units, e.g. "36h", "7d", "1w2d", "1.5d", "-2w".
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if !strings.ContainsAny(s, "dw") {
		return time.ParseDuration(s)
	}

	var b strings.Builder
	if s[0] == '+' || s[0] == '-' {
		b.WriteByte(s[0])
		s = s[1:]
	}

	pos := 0
	for _, m := range durationToken.FindAllStringSubmatchIndex(s, -1) {
		if m[0] != pos {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		num, unit := s[m[2]:m[3]], s[m[4]:m[5]]
		switch unit {
		case "d":
			if err := writeHours(&b, num, 24); err != nil {
				return 0, fmt.Errorf("invalid duration %q", raw)
			}
		case "w":
			if err := writeHours(&b, num, 7*24); err != nil {
				return 0, fmt.Errorf("invalid duration %q", raw)
			}
		default:
			b.WriteString(num)
			b.WriteString(unit)
		}
		pos = m[1]
	}
	if pos == 0 || pos != len(s) {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.ParseDuration(b.String())
}

func writeHours(b *strings.Builder, num string, factor float64) error {
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return err
	}
	b.WriteString(strconv.FormatFloat(f*factor, 'f', -1, 64))
	b.WriteByte('h')
	return nil
}
