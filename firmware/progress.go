package firmware

// ProgressFunc receives whole-percent progress updates.
type ProgressFunc func(percent int)

// progressStep is the minimum increase between two reports below 100.
const progressStep = 10

type reporter struct {
	fn   ProgressFunc
	last int
	done bool
}

func newReporter(fn ProgressFunc) *reporter {
	if fn == nil {
		fn = func(int) {}
	}
	return &reporter{fn: fn, last: -1}
}

func (r *reporter) start() {
	r.emit(0)
}

// update reports sent/total when it moved at least progressStep points.
func (r *reporter) update(sent, total int) {
	if total <= 0 {
		return
	}
	pct := sent * 100 / total
	if pct >= 100 {
		r.finish()
		return
	}
	if pct-r.last >= progressStep {
		r.emit(pct)
	}
}

func (r *reporter) finish() {
	if r.done {
		return
	}
	r.done = true
	r.emit(100)
}

func (r *reporter) emit(pct int) {
	if pct <= r.last {
		return
	}
	r.last = pct
	r.fn(pct)
}
