// Package fuzztests houses Go fuzz harnesses for the unit reader and the
// lowering pipeline. Arbitrary bytes are decoded as a unit and, when that
// succeeds, lowered; the harnesses guard against panics, hangs and TIR that
// breaks the testkit invariants.
package fuzztests
