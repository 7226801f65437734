package game

// Rejection is the reason an action could not start. The zero value means
// the action was accepted. Rejections are not errors.
type Rejection string

// Rejection reasons.
const (
	Accepted          Rejection = ""
	RejectBusy        Rejection = "busy"
	RejectEnergy      Rejection = "energy"
	RejectFunds       Rejection = "funds"
	RejectNoTarget    Rejection = "no-target"
	RejectNoSlot      Rejection = "no-slot"
	RejectTierLocked  Rejection = "tier-locked"
	RejectActive      Rejection = "already-active"
	RejectHealthy     Rejection = "healthy"
	RejectGameOver    Rejection = "game-over"
	RejectUnknown     Rejection = "unknown-action"
	RejectTimeframe   Rejection = "timeframe"
	RejectGraceUsed   Rejection = "grace-used"
	RejectNotGameOver Rejection = "not-game-over"
)

var rejectionMessages = map[Rejection]string{
	RejectBusy:        "Another action is already in progress",
	RejectEnergy:      "Not enough energy",
	RejectFunds:       "Not enough karma",
	RejectNoTarget:    "No valid target",
	RejectNoSlot:      "All post slots are in use",
	RejectTierLocked:  "Reach a higher tier first",
	RejectActive:      "Upgrade is already active",
	RejectHealthy:     "Community is already at full health",
	RejectGameOver:    "Game over",
	RejectUnknown:     "Unknown action",
	RejectTimeframe:   "Chart timeframe not available",
	RejectGraceUsed:   "Grace period already used",
	RejectNotGameOver: "The game is not over",
}

// OK reports whether the action was accepted.
func (r Rejection) OK() bool {
	return r == Accepted
}

// Message returns a short user-facing text.
func (r Rejection) Message() string {
	if r == Accepted {
		return ""
	}
	if m, ok := rejectionMessages[r]; ok {
		return m
	}
	return string(r)
}
