// SPDX-License-Identifier: MIT

package refine

// State is the controller lifecycle state.
type State int

// Controller states.
const (
	Seeding State = iota
	WaitingForPoints
	Training
	Selecting
	Resolved
	Converged
	BudgetExceeded
	Stopped
	Failed
)

var stateNames = [...]string{
	Seeding:          "Seeding",
	WaitingForPoints: "WaitingForPoints",
	Training:         "Training",
	Selecting:        "Selecting",
	Resolved:         "Resolved",
	Converged:        "Converged",
	BudgetExceeded:   "BudgetExceeded",
	Stopped:          "Stopped",
	Failed:           "Failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(?)"
	}

	return stateNames[s]
}

// Terminal reports whether s ends the refinement.
func (s State) Terminal() bool { return s >= Resolved }
