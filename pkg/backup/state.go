package backup

// State tracks the relocation state machine. Forward progress runs
// Idle → Validating → SnapshotWritten → Moving → Moved → Linking →
// Linked → Verifying → Committed; any failure from Moving onward goes
// through RollingBack to RolledBack or RollbackFailed.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateSnapshotWritten State = "snapshot-written"
	StateMoving          State = "moving"
	StateMoved           State = "moved"
	StateLinking         State = "linking"
	StateLinked          State = "linked"
	StateVerifying       State = "verifying"
	StateCommitted       State = "committed"
	StateRollingBack     State = "rolling-back"
	StateRolledBack      State = "rolled-back"
	StateRollbackFailed  State = "rollback-failed"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state machine has finished, successfully
// or not.
func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateRolledBack, StateRollbackFailed:
		return true
	}
	return false
}
