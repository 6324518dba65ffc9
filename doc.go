// Package cosmogo solves first-order conic quadratic programs
//
//	minimize    (1/2) x^T P x + q^T x
//	subject to  A x + s = b,  s in K
//
// by operator splitting (ADMM), the same way the packages under this
// module split the work: sparsemat carries the sparse linear algebra,
// cone implements projection onto every supported cone (and their
// duals), scaler equilibrates the problem before the loop runs, kkt and
// kktsolver factor and solve the linear system each ADMM step needs,
// chordal decomposes a large PSD constraint into a clique tree of
// smaller ones when asked to, and admm runs the iteration itself.
//
// Solve is this package's only entry point: it wires those pieces
// together and returns admm.Result, unscaled and (if the Problem was
// decomposed) recombined back into the caller's original variables.
//
//	go get github.com/cosmogo/cosmogo
package cosmogo
