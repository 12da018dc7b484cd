package state

// Window is an inclusive block range.
type Window struct {
	From uint64
	To   uint64
}

// Windows splits [from, to] into contiguous, non-overlapping windows of at
// most width blocks. It returns nil when from > to or width is zero.
func Windows(from, to, width uint64) []Window {
	if from > to || width == 0 {
		return nil
	}
	var out []Window
	for start := from; ; {
		end := to
		if to-start >= width {
			end = start + width - 1
		}
		out = append(out, Window{From: start, To: end})
		if end == to {
			return out
		}
		start = end + 1
	}
}
