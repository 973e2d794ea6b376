package experience

import "time"

// Experience is one (state, action, reward, next state) record
type Experience struct {
	ID             string
	GameID         string
	Step           int
	State          [][]int
	Action         int
	Reward         float64
	NextState      [][]int
	Done           bool
	ActionMask     []bool
	NextActionMask []bool
	CollectedAt    time.Time
}
