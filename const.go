package match

import "github.com/shopspring/decimal"

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"
)

// FloatingPointTolerance is the slack applied to every energy and rate comparison.
// Differences within it are treated as equal.
var FloatingPointTolerance = decimal.New(1, -8)
