// internal/submission/gate.go
package submission

import "math"

// MinConfidence is the lowest derived score the gate accepts. The gate is
// the sole enforcement point; the datastore applies no such constraint.
const MinConfidence = 70

// DeriveScore converts the oracle's raw confidence in [0,1] to the integer
// percentage the gate and the datastore work with. Half rounds up.
func DeriveScore(raw float64) int {
	return int(math.Round(raw * 100))
}

// Accept reports whether a derived score clears the threshold. Pure
// decision, no side effects.
func Accept(score int) bool {
	return score >= MinConfidence
}
