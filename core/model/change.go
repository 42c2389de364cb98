package model

// ChangeCause classifies why a night moved.
type ChangeCause string

const (
	// CauseDisruption marks a forced flip off an unavailable guardian.
	CauseDisruption ChangeCause = "disruption"
	// CauseManual marks a user-pinned assignment.
	CauseManual ChangeCause = "manual"
	// CauseAutoBalance marks a repair or fairness move.
	CauseAutoBalance ChangeCause = "auto_balance"
)

// ChangeRecord describes one night whose assignment differs from the base.
type ChangeRecord struct {
	Date  DateKey     `json:"date"`
	From  GuardianID  `json:"fromGuardian"`
	To    GuardianID  `json:"toGuardian"`
	Cause ChangeCause `json:"cause"`
}
