// Package programs is a library of agent programs built only from the
// engine's primitives: node degree, port labels, colocated agent ids and the
// agent's own clock and memory.
//
// Disperse and Measure assume the compass-aligned labelling (1=left, 2=down,
// 3=right, 4=up) and misbehave on unoriented grids. Wander only relies on
// degrees and works on both.
package programs
