// Package scaler implements Ruiz equilibration: iterative diagonal
// scaling of (P, q, A, b) that equalizes row and column infinity-norms,
// plus a cost-scaling pass, plus the cone-aware rectification that
// collapses the row-scale diagonal E to a single repeated value inside
// any cone block that requires scalar scaling (SOC, PSD, Exp, Pow and
// their duals).
//
// Scaling is reversible: Reverse undoes Equilibrate's effect on an
// iterate (x, s, nu, mu) exactly, up to floating-point round-off.
package scaler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// Sentinel errors for scaler construction.
var (
	// ErrBadIterationCount indicates a negative Ruiz iteration count.
	ErrBadIterationCount = fmt.Errorf("scaler: iteration count must be >= 0")
	// ErrBadScalingBounds indicates MinScaling >= MaxScaling or a
	// non-positive MinScaling.
	ErrBadScalingBounds = fmt.Errorf("scaler: invalid [MinScaling, MaxScaling] bounds")
)

// Settings configures Ruiz equilibration.
type Settings struct {
	// Iterations is the number of Ruiz sweeps to run; 0 disables scaling
	// entirely (D, E, c stay identity/1).
	Iterations int
	// MinScaling, MaxScaling clamp every computed scale factor before
	// it is inverted and applied.
	MinScaling, MaxScaling float64
}

// DefaultSettings returns the conventional Ruiz configuration: 10
// iterations, scale factors clamped to [1e-4, 1e4].
func DefaultSettings() Settings {
	return Settings{Iterations: 10, MinScaling: 1e-4, MaxScaling: 1e4}
}

// Validate checks Settings for internal consistency.
func (s Settings) Validate() error {
	if s.Iterations < 0 {
		return ErrBadIterationCount
	}
	if s.MinScaling <= 0 || s.MinScaling >= s.MaxScaling {
		return ErrBadScalingBounds
	}
	return nil
}

// Matrices holds the diagonal equilibration matrices D (n x n), E (m x
// m), their inverses, and the cost scalar c, all as flat diagonals.
// Invariant: D, E, Dinv, Einv are strictly positive and Dinv[i]*D[i] ==
// 1, Einv[i]*E[i] == 1 (componentwise, up to round-off); c, Cinv > 0.
type Matrices struct {
	D, Dinv []float64
	E, Einv []float64
	C, Cinv float64
}

func identity(n int) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return d
}

// newIdentityMatrices builds Matrices equal to the no-op scaling (D = E
// = I, c = 1), used both as the Settings.Iterations == 0 result and as
// the accumulator Equilibrate folds each Ruiz sweep into.
func newIdentityMatrices(n, m int) *Matrices {
	return &Matrices{
		D: identity(n), Dinv: identity(n),
		E: identity(m), Einv: identity(m),
		C: 1, Cinv: 1,
	}
}

// Equilibrate runs Settings.Iterations Ruiz sweeps over (P, A, q, b),
// scaling them in place, and returns the accumulated Matrices. cones
// lists the composite cone's members so their scalar-scaling and
// per-cone bound hooks can be applied after the sweeps.
//
// Steps per sweep:
//  1. column norms of [P; A] and row norms of A, both L-infinity.
//  2. clamp to [MinScaling, MaxScaling], mapping 0 -> 1.
//  3. Dwork, Ework <- 1/sqrt(.).
//  4. apply and accumulate D, E.
//  5. a cost-scaling pass using the freshly scaled P, q.
func Equilibrate(settings Settings, p, a *sparsemat.CSC, q, b []float64, cones []cone.Cone) (*Matrices, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	n, m := p.Rows, a.Rows
	mats := newIdentityMatrices(n, m)
	if settings.Iterations == 0 {
		return mats, nil
	}

	for iter := 0; iter < settings.Iterations; iter++ {
		dwork := stackedColInfNorms(p, a)
		ework := a.RowInfNorms()
		clampAndInvertSqrt(dwork, settings)
		clampAndInvertSqrt(ework, settings)

		p.ScaleRowsColsInPlace(dwork, dwork)
		a.ScaleRowsColsInPlace(ework, dwork)
		for i := range q {
			q[i] *= dwork[i]
		}
		for i := range b {
			b[i] *= ework[i]
		}
		for i := range mats.D {
			mats.D[i] *= dwork[i]
		}
		for i := range mats.E {
			mats.E[i] *= ework[i]
		}

		gamma := mean(p.ColInfNorms())
		eta := floats.Norm(q, math.Inf(1))
		if gamma != 0 && eta != 0 {
			etaClamped := clampOne(eta, settings)
			scaleCost := math.Max(gamma, etaClamped)
			cTmp := 1 / scaleCost
			p.ScaleRowsColsInPlace(ones(n), scaleConst(n, cTmp))
			for i := range q {
				q[i] *= cTmp
			}
			mats.C *= cTmp
		}
	}

	rectifyConeBlocks(mats, a, b, cones, settings)

	for i := range mats.D {
		mats.Dinv[i] = 1 / mats.D[i]
	}
	for i := range mats.E {
		mats.Einv[i] = 1 / mats.E[i]
	}
	mats.Cinv = 1 / mats.C

	return mats, nil
}

// rectifyConeBlocks collapses, for every cone requiring scalar E, its
// E-diagonal slice to the mean of its current values and re-scales A and
// b by the E-ratio on that slice only; it then runs every cone's own
// RescaleBounds hook with the final E.
//
// The re-application of E to A happens only here, once per cone and
// only on that cone's own rows — not as a separate pass over all of A,
// which would double-scale rows outside any rectified block.
func rectifyConeBlocks(mats *Matrices, a *sparsemat.CSC, b []float64, cones []cone.Cone, settings Settings) {
	for _, c := range cones {
		if !c.RequiresScalarE() {
			continue
		}
		start, length := c.Range()
		block := mats.E[start : start+length]
		scalarE := stat.Mean(block, nil)

		ratio := make([]float64, a.Rows)
		for i := range ratio {
			ratio[i] = 1
		}
		for i := start; i < start+length; i++ {
			ratio[i] = scalarE / mats.E[i]
			mats.E[i] = scalarE
		}
		reapplyRowScale(a, b, ratio)
	}
	for _, c := range cones {
		c.RescaleBounds(mats.E)
	}
	_ = settings
}

// reapplyRowScale multiplies A's rows and b by ratio in place (ratio[i]
// == 1 everywhere outside the rectified cone block, so this only
// touches that block's rows).
func reapplyRowScale(a *sparsemat.CSC, b []float64, ratio []float64) {
	for j := 0; j < a.Cols; j++ {
		for k := a.ColPtr[j]; k < a.ColPtr[j+1]; k++ {
			a.Data[k] *= ratio[a.RowIdx[k]]
		}
	}
	for i := range b {
		b[i] *= ratio[i]
	}
}

// Reverse undoes Equilibrate's effect on an iterate: x <- D*x; s <-
// Einv*s; nu <- E*nu*Cinv; mu <- E*mu*Cinv.
func (m *Matrices) Reverse(x, s, nu, mu []float64) {
	elementwiseScale(x, m.D)
	elementwiseScale(s, m.Einv)
	elementwiseScaleThenConst(nu, m.E, m.Cinv)
	elementwiseScaleThenConst(mu, m.E, m.Cinv)
}

// ApplyToWarmStart rescales a warm-started iterate as Equilibrate's
// final step: x <- Dinv*x; mu <- Einv*mu*c.
func (m *Matrices) ApplyToWarmStart(x, mu []float64) {
	elementwiseScale(x, m.Dinv)
	elementwiseScaleThenConst(mu, m.Einv, m.C)
}

func elementwiseScale(v, scale []float64) {
	for i := range v {
		v[i] *= scale[i]
	}
}

func elementwiseScaleThenConst(v, scale []float64, c float64) {
	for i := range v {
		v[i] = v[i] * scale[i] * c
	}
}

func stackedColInfNorms(p, a *sparsemat.CSC) []float64 {
	pn := p.ColInfNorms()
	an := a.ColInfNorms()
	out := make([]float64, len(pn))
	for i := range out {
		out[i] = math.Max(pn[i], an[i])
	}
	return out
}

func clampAndInvertSqrt(v []float64, settings Settings) {
	for i := range v {
		if v[i] == 0 {
			v[i] = 1
			continue
		}
		v[i] = clampOne(v[i], settings)
		v[i] = 1 / math.Sqrt(v[i])
	}
}

func clampOne(x float64, settings Settings) float64 {
	if x < settings.MinScaling {
		return settings.MinScaling
	}
	if x > settings.MaxScaling {
		return settings.MaxScaling
	}
	return x
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func scaleConst(n int, c float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = c
	}
	return v
}
