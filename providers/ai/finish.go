package ai

// FinishReasonTable maps vendor finish-reason strings onto the unified enum.
type FinishReasonTable map[string]FinishReason

// Normalize returns the unified reason for raw. Empty input yields nil so
// streaming chunks without a reason stay unmarked; unrecognized reasons
// default to FinishReasonStop rather than failing.
func (t FinishReasonTable) Normalize(raw string) *FinishReason {
	if raw == "" {
		return nil
	}
	reason, ok := t[raw]
	if !ok {
		reason = FinishReasonStop
	}
	return &reason
}

// Ptr returns a pointer to reason, handy when building responses by hand.
func (reason FinishReason) Ptr() *FinishReason {
	return &reason
}
