package exporter

import "time"

// Windows returns the windows mode visits over [min, max], in visiting order.
// Cumulative keeps every forward window anchored at min and is ignored by the
// backward walks.
func Windows(mode Mode, cumulative bool, size time.Duration, min, max time.Time) []Window {
	if size <= 0 || max.Before(min) {
		return nil
	}
	switch mode {
	case Forward:
		return forward(cumulative, size, min, max)
	case ForwardResumable:
		return complete(cumulative, size, min, max)
	case Backward:
		return backward(max.Add(-size+time.Second), max, size, min)
	case UpTo:
		return backward(midnight(max), max, size, min)
	default:
		return nil
	}
}

func forward(cumulative bool, size time.Duration, min, max time.Time) []Window {
	var out []Window
	from, to := min, min.Add(size-time.Second)
	for {
		if to.After(max) {
			to = max
		}
		out = append(out, Window{From: from, To: to})
		if to.Equal(max) {
			return out
		}
		if !cumulative {
			from = from.Add(size)
		}
		to = to.Add(size)
	}
}

// complete walks like forward but, after the first window, stops before the
// first window whose upper bound lies past max. The first window is always
// visited and is clamped to max while it is still filling.
func complete(cumulative bool, size time.Duration, min, max time.Time) []Window {
	from, to := min, min.Add(size-time.Second)
	if to.After(max) {
		return []Window{{From: from, To: max}}
	}
	var out []Window
	for !to.After(max) {
		out = append(out, Window{From: from, To: to})
		if !cumulative {
			from = from.Add(size)
		}
		to = to.Add(size)
	}
	return out
}

func backward(from, to time.Time, size time.Duration, min time.Time) []Window {
	var out []Window
	for {
		out = append(out, Window{From: from, To: to})
		from = from.Add(-size)
		to = to.Add(-size)
		if from.Before(min) {
			return out
		}
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
