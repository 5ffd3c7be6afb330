package detect

import (
	"regexp"
	"strconv"
	"time"
)

var (
	hmsRe     = regexp.MustCompile(`\b(\d{1,2}):(\d{2}):(\d{2})\b`)
	msRe      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	unitsRe   = regexp.MustCompile(`(?i)(?:(\d+)\s*d(?:ays?)?\s*)?(\d+)\s*h(?:ours?|rs?)?\s*(\d+)\s*m(?:in(?:ute)?s?)?(?:\s*(\d+)\s*s(?:ec(?:ond)?s?)?)?\b`)
	minSecsRe = regexp.MustCompile(`(?i)\b(\d+)\s*m(?:in(?:ute)?s?)?\s*(\d+)\s*s(?:ec(?:ond)?s?)?\b`)
)

// ParseRemaining reads the first countdown value in s. Supported shapes are
// HH:MM:SS, MM:SS, "Xh Ym Zs", "Xh Ym" and "Xm Ys", optionally prefixed by
// days.
func ParseRemaining(s string) (time.Duration, bool) {
	type candidate struct {
		at int
		d  time.Duration
	}
	var best *candidate
	consider := func(at int, d time.Duration) {
		if best == nil || at < best.at {
			best = &candidate{at: at, d: d}
		}
	}

	if m := hmsRe.FindStringSubmatchIndex(s); m != nil {
		consider(m[0], clock(s, m, 2, 4, 6))
	}
	if m := unitsRe.FindStringSubmatchIndex(s); m != nil {
		d := time.Duration(atoi(s, m, 2))*24*time.Hour +
			time.Duration(atoi(s, m, 4))*time.Hour +
			time.Duration(atoi(s, m, 6))*time.Minute +
			time.Duration(atoi(s, m, 8))*time.Second
		consider(m[0], d)
	}
	if m := minSecsRe.FindStringSubmatchIndex(s); m != nil {
		consider(m[0], time.Duration(atoi(s, m, 2))*time.Minute+time.Duration(atoi(s, m, 4))*time.Second)
	}
	if best == nil {
		if m := msRe.FindStringSubmatchIndex(s); m != nil {
			consider(m[0], time.Duration(atoi(s, m, 2))*time.Minute+time.Duration(atoi(s, m, 4))*time.Second)
		}
	}

	if best == nil {
		return 0, false
	}
	return best.d, true
}

func clock(s string, m []int, h, mi, sec int) time.Duration {
	return time.Duration(atoi(s, m, h))*time.Hour +
		time.Duration(atoi(s, m, mi))*time.Minute +
		time.Duration(atoi(s, m, sec))*time.Second
}

// atoi parses submatch group starting at index i of m; a missing group is 0.
func atoi(s string, m []int, i int) int {
	if m[i] < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[m[i]:m[i+1]])
	return n
}
