package accounting

import (
	"sort"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
)

type span struct {
	start time.Time
	end   time.Time
}

func (s span) duration() time.Duration {
	return s.end.Sub(s.start)
}

// clip turns validated intervals into closed spans, ending open ones at end.
func clip(list []shift.Interval, end time.Time) []span {
	out := make([]span, 0, len(list))
	for _, iv := range list {
		out = append(out, span{start: iv.Start, end: iv.EndOr(end)})
	}
	return out
}

func total(spans []span) time.Duration {
	var d time.Duration
	for _, s := range spans {
		d += s.duration()
	}
	return d
}

// union merges overlapping or touching spans and returns the covered length.
func union(groups ...[]span) time.Duration {
	var all []span
	for _, g := range groups {
		all = append(all, g...)
	}
	if len(all) == 0 {
		return 0
	}
	sort.Slice(all, func(i, j int) bool { return all[i].start.Before(all[j].start) })

	var covered time.Duration
	cur := all[0]
	for _, s := range all[1:] {
		if !s.start.After(cur.end) {
			if s.end.After(cur.end) {
				cur.end = s.end
			}
			continue
		}
		covered += cur.duration()
		cur = s
	}
	return covered + cur.duration()
}
