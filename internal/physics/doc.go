// Package physics assembles the finite-difference operators of the
// coupled head and heat equations in a layered 1D column.
//
// Both equations use a θ-scheme with weight α:
//
//	A·X^{j+1} = B·X^j + c
//
// where A carries the implicit part, B the explicit part and c the
// boundary and source terms. Interior rows use a centred 3-point stencil.
// The first and last cells sit half a cell away from the Dirichlet
// boundary and use the ghost half-cell form (4/3 and 8/(3·dz²)).
//
//   - [HeadSystem]: Ss·∂H/∂t = ∂z(K·∂zH) + q
//   - [HeatSystem]: ∂T/∂t = ke·∂²T/∂z² + ae·∂zH·∂zT
//   - [Properties]: per-cell K, Ss, ke, ae derived from layer params
//   - [ClassifyInterfaces]: locates layer boundaries on the grid
//
// # Layer Interfaces
//
// A layer boundary that falls on a cell centre gives that row the upper
// conductivity below it and the lower conductivity above it. A boundary
// strictly between two centres at fraction x replaces the coupling of the
// two adjoining rows by the harmonic mean Keq = 1/(x/K1 + (1-x)/K2).
// Identical layers leave the operator unchanged.
package physics
