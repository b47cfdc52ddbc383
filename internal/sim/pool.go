package sim

import (
	"sync"

	"github.com/san-kum/streamheat/internal/physics"
	"github.com/san-kum/streamheat/internal/tridiag"
)

// Workspace holds every buffer touched inside the time loop, so a run
// does not allocate per step.
type Workspace struct {
	n      int
	solver *tridiag.Solver
	props  *physics.Properties
	head   *physics.HeadSystem
	heat   *physics.HeatSystem

	h, hNext []float64
	t, tNext []float64
	grad     []float64
	flux     []float64
	rhs      []float64
	mu       []float64
}

func newWorkspace(n int, alpha float64) *Workspace {
	return &Workspace{
		n:      n,
		solver: tridiag.NewSolver(n),
		props:  physics.NewProperties(n),
		head:   physics.NewHeadSystem(n, alpha),
		heat:   physics.NewHeatSystem(n, alpha),
		h:      make([]float64, n),
		hNext:  make([]float64, n),
		t:      make([]float64, n),
		tNext:  make([]float64, n),
		grad:   make([]float64, n),
		flux:   make([]float64, n),
		rhs:    make([]float64, n),
		mu:     make([]float64, n),
	}
}

// WorkspacePool recycles workspaces of one grid size across runs and
// goroutines.
type WorkspacePool struct {
	pool  sync.Pool
	cells int
}

func NewWorkspacePool(cells int, alpha float64) *WorkspacePool {
	return &WorkspacePool{
		cells: cells,
		pool: sync.Pool{
			New: func() interface{} {
				return newWorkspace(cells, alpha)
			},
		},
	}
}

func (p *WorkspacePool) Get() *Workspace {
	return p.pool.Get().(*Workspace)
}

func (p *WorkspacePool) Put(w *Workspace) {
	if w.n == p.cells {
		p.pool.Put(w)
	}
}
