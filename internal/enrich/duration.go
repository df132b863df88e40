package enrich

import (
	"regexp"
	"strconv"
)

var (
	atMostMinutesRe = regexp.MustCompile(`at\s+most\s+(\d+)\s*(?:min|mins|minute|minutes)`)
	hourRangeRe     = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*hour`)
	hoursRe         = regexp.MustCompile(`(\d+)\s*(?:hour|hours)`)
	minutesRe       = regexp.MustCompile(`(\d+)\s*(?:min|mins|minute|minutes)`)
)

// extractMaxDuration pulls a duration cap in minutes out of lowercased
// query text ("at most 40 minutes", "1-2 hours", "90 mins"). Returns 0
// when no constraint is present. Ranges use the upper bound.
func extractMaxDuration(lowered string) int {
	if m := atMostMinutesRe.FindStringSubmatch(lowered); m != nil {
		return atoi(m[1])
	}
	if m := hourRangeRe.FindStringSubmatch(lowered); m != nil {
		return atoi(m[2]) * 60
	}
	if m := hoursRe.FindStringSubmatch(lowered); m != nil {
		return atoi(m[1]) * 60
	}
	if m := minutesRe.FindStringSubmatch(lowered); m != nil {
		return atoi(m[1])
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
