package metrics

// Acceptance tracks the running acceptance ratio of one chain.
type Acceptance struct {
	accepted int
	total    int
}

func (a *Acceptance) Name() string { return "acceptance" }

func (a *Acceptance) Observe(accepted bool) {
	if accepted {
		a.accepted++
	}
	a.total++
}

func (a *Acceptance) Value() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.accepted) / float64(a.total)
}

func (a *Acceptance) Counts() (accepted, total int) { return a.accepted, a.total }

func (a *Acceptance) Reset() {
	a.accepted = 0
	a.total = 0
}
