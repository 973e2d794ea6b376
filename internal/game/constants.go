package game

// Grid defaults applied when a dimension is not positive
const (
	DefaultRows    = 10
	DefaultColumns = 10
)

// StepReward is paid for every successful step. There is no other reward.
const StepReward = 1.0

// Observation bounds: every cell holds a core.CellState value in [Low, High].
const (
	ObservationLow  = 0
	ObservationHigh = 2
)
