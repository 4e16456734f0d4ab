package pipeline

// stateMachine enforces run status transitions. Failure and ambiguity are
// reachable from any non-terminal state; success states only move forward.
type stateMachine struct {
	allowedTransitions map[RunStatus][]RunStatus
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		allowedTransitions: map[RunStatus][]RunStatus{
			StatusInit:            {StatusAssetCreated, StatusFailed, StatusAmbiguous},
			StatusAssetCreated:    {StatusAccountReady, StatusFailed},
			StatusAccountReady:    {StatusSupplyAllocated, StatusFailed, StatusAmbiguous},
			StatusSupplyAllocated: {StatusLiquiditySeeded, StatusFailed},
			StatusLiquiditySeeded: {},
			StatusFailed:          {}, // resume re-derives position from identifiers
			StatusAmbiguous:       {StatusInit, StatusAssetCreated, StatusAccountReady, StatusSupplyAllocated},
		},
	}
}

// canTransition checks if a status transition is allowed.
func (sm *stateMachine) canTransition(from, to RunStatus) bool {
	for _, allowed := range sm.allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
