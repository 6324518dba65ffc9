// Package admm runs the alternating direction method of multipliers on an
// assembled conic quadratic program:
//
//	minimize    (1/2) x^T P x + q^T x
//	subject to  A x + s = b,  s in K
//
// It owns the iteration loop, the per-row penalty vector (rho), the
// over-relaxation and adaptive-rho schedules, and the termination and
// infeasibility-detection cadences. It does not know about scaling or
// chordal decomposition: callers hand it an already-assembled Problem and
// a factored kkt.Handle, and get back a Result in the same (possibly
// scaled, possibly decomposed) coordinates it was given.
package admm

import (
	"fmt"
	"log"
	"time"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// Sentinel errors for Problem and Settings construction.
var (
	// ErrDimensionMismatch indicates P, q, A, and b do not agree on n or
	// m.
	ErrDimensionMismatch = fmt.Errorf("admm: dimension mismatch")
	// ErrBadSettings indicates a Settings field is out of its valid range.
	ErrBadSettings = fmt.Errorf("admm: invalid settings")
)

// Problem is an assembled conic quadratic program in the coordinates the
// loop actually iterates in (post-scaling, post-decomposition, if the
// caller applied either).
type Problem struct {
	N, M  int
	P     *sparsemat.CSC
	Q     []float64
	A     *sparsemat.CSC
	B     []float64
	Cones *cone.Composite
}

// NewProblem validates shapes and wraps (P, q, A, b, cones) as a Problem.
func NewProblem(p *sparsemat.CSC, q []float64, a *sparsemat.CSC, b []float64, cones *cone.Composite) (*Problem, error) {
	n, _ := p.Shape()
	m, ac := a.Shape()
	if ac != n || len(q) != n || len(b) != m {
		return nil, ErrDimensionMismatch
	}
	return &Problem{N: n, M: m, P: p, Q: q, A: a, B: b, Cones: cones}, nil
}

// Iterate is the ADMM state carried between steps: primal x, slack s, and
// the two dual variables the loop tracks (nu, the KKT-system multiplier,
// and mu, the scaled dual variable associated with s in K).
type Iterate struct {
	X, S, Nu, Mu []float64
}

// NewIterate allocates a zeroed Iterate of the given sizes.
func NewIterate(n, m int) *Iterate {
	return &Iterate{X: make([]float64, n), S: make([]float64, m), Nu: make([]float64, m), Mu: make([]float64, m)}
}

// RhoVec is the per-constraint-row ADMM penalty. Rows in a Zero cone get a
// much larger rho than inequality rows: equality constraints should bind
// tightly from the start, while inequality slacks tolerate a softer
// penalty while the iterates are still far from the cone.
type RhoVec struct {
	Values []float64
}

const (
	rhoEqualityScale   = 1e3
	rhoInequalityScale = 1
)

// NewRhoVec builds a RhoVec of length m, seeding every row at rho0 except
// rows inside a Zero cone, which get rho0*rhoEqualityScale.
func NewRhoVec(m int, rho0 float64, cones []cone.Cone) *RhoVec {
	v := make([]float64, m)
	for i := range v {
		v[i] = rho0 * rhoInequalityScale
	}
	for _, c := range cones {
		if c.Kind() != cone.Zero {
			continue
		}
		start, length := c.Range()
		for i := start; i < start+length; i++ {
			v[i] = rho0 * rhoEqualityScale
		}
	}
	return &RhoVec{Values: v}
}

// Scale multiplies every entry by factor, clamped to [lo, hi].
func (r *RhoVec) Scale(factor, lo, hi float64) {
	for i, v := range r.Values {
		nv := v * factor
		if nv < lo {
			nv = lo
		}
		if nv > hi {
			nv = hi
		}
		r.Values[i] = nv
	}
}

// Status is the terminal state of a Run.
type Status int

const (
	Unsolved Status = iota
	Solved
	PrimalInfeasible
	DualInfeasible
	MaxIterReached
	TimeLimitReached
)

func (s Status) String() string {
	switch s {
	case Unsolved:
		return "Unsolved"
	case Solved:
		return "Solved"
	case PrimalInfeasible:
		return "Primal_infeasible"
	case DualInfeasible:
		return "Dual_infeasible"
	case MaxIterReached:
		return "Max_iter_reached"
	case TimeLimitReached:
		return "Time_limit_reached"
	default:
		return "Status(?)"
	}
}

// Result is the outcome of Run: the final iterate, its status, and the
// diagnostics a caller needs to decide whether to trust it.
type Result struct {
	X, S, Nu, Mu []float64
	Cost         float64
	Status       Status
	Iterations   int
	RPrim, RDual float64
	SolveTime    time.Duration
}

// Settings configures the ADMM loop. Build one with DefaultSettings and
// override fields with the With* options.
type Settings struct {
	MaxIter             int
	EpsAbs, EpsRel       float64
	Alpha               float64
	Sigma               float64
	Rho0                float64
	RhoMin, RhoMax      float64
	AdaptiveRho         bool
	AdaptiveRhoInterval int
	CheckTermination    int
	CheckInfeasibility  int
	TimeLimit           time.Duration
	Verbose             bool
	Logger              *log.Logger
}

// DefaultSettings mirrors the conventional defaults for this style of
// conic ADMM solver.
func DefaultSettings() Settings {
	return Settings{
		MaxIter:             2500,
		EpsAbs:              1e-4,
		EpsRel:              1e-4,
		Alpha:               1.6,
		Sigma:               1e-6,
		Rho0:                0.1,
		RhoMin:              1e-6,
		RhoMax:              1e6,
		AdaptiveRho:         true,
		AdaptiveRhoInterval: 40,
		CheckTermination:    25,
		CheckInfeasibility:  40,
		TimeLimit:           0,
		Verbose:             false,
		Logger:              log.Default(),
	}
}

// Option customizes Settings returned by DefaultSettings.
type Option func(*Settings)

// WithMaxIter overrides the iteration cap.
func WithMaxIter(n int) Option {
	if n <= 0 {
		panic("admm: WithMaxIter(n<=0)")
	}
	return func(s *Settings) { s.MaxIter = n }
}

// WithTolerances overrides the absolute and relative termination
// tolerances.
func WithTolerances(epsAbs, epsRel float64) Option {
	if epsAbs <= 0 || epsRel <= 0 {
		panic("admm: WithTolerances(<=0)")
	}
	return func(s *Settings) { s.EpsAbs, s.EpsRel = epsAbs, epsRel }
}

// WithAlpha overrides the over-relaxation parameter (typically in
// (0, 2)).
func WithAlpha(alpha float64) Option {
	if alpha <= 0 {
		panic("admm: WithAlpha(<=0)")
	}
	return func(s *Settings) { s.Alpha = alpha }
}

// WithSigma overrides the regularization term added to P's diagonal in
// the KKT system.
func WithSigma(sigma float64) Option {
	if sigma <= 0 {
		panic("admm: WithSigma(<=0)")
	}
	return func(s *Settings) { s.Sigma = sigma }
}

// WithRho overrides the initial penalty rho0 and the bounds adaptive
// rescaling clamps it to.
func WithRho(rho0, rhoMin, rhoMax float64) Option {
	if rho0 <= 0 || rhoMin <= 0 || rhoMin >= rhoMax {
		panic("admm: WithRho(invalid bounds)")
	}
	return func(s *Settings) { s.Rho0, s.RhoMin, s.RhoMax = rho0, rhoMin, rhoMax }
}

// WithAdaptiveRho turns automatic rho rescaling on or off and sets the
// iteration interval it is attempted at.
func WithAdaptiveRho(enabled bool, interval int) Option {
	if interval <= 0 {
		panic("admm: WithAdaptiveRho(interval<=0)")
	}
	return func(s *Settings) { s.AdaptiveRho, s.AdaptiveRhoInterval = enabled, interval }
}

// WithCheckIntervals overrides how often termination and infeasibility
// are tested, in iterations.
func WithCheckIntervals(termination, infeasibility int) Option {
	if termination <= 0 || infeasibility <= 0 {
		panic("admm: WithCheckIntervals(<=0)")
	}
	return func(s *Settings) { s.CheckTermination, s.CheckInfeasibility = termination, infeasibility }
}

// WithTimeLimit bounds wall-clock solve time; zero disables the limit.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Settings) { s.TimeLimit = d }
}

// WithLogger enables verbose per-check-interval logging to the given
// logger. Passing nil disables verbose logging.
func WithLogger(logger *log.Logger) Option {
	return func(s *Settings) {
		s.Verbose = logger != nil
		if logger != nil {
			s.Logger = logger
		}
	}
}

// Validate checks Settings for internal consistency; Run calls this
// before iterating so a bad configuration surfaces as an error, not a
// silent misbehaving loop.
func (s Settings) Validate() error {
	if s.MaxIter <= 0 || s.EpsAbs <= 0 || s.EpsRel <= 0 || s.Alpha <= 0 || s.Sigma <= 0 {
		return ErrBadSettings
	}
	if s.Rho0 <= 0 || s.RhoMin <= 0 || s.RhoMin >= s.RhoMax {
		return ErrBadSettings
	}
	if s.CheckTermination <= 0 || s.CheckInfeasibility <= 0 {
		return ErrBadSettings
	}
	if s.AdaptiveRhoInterval <= 0 {
		return ErrBadSettings
	}
	return nil
}

// NewSettings applies opts over DefaultSettings.
func NewSettings(opts ...Option) Settings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

