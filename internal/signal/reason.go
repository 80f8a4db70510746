package signal

import "strings"

// ReasonCode explains why an evaluation produced no signal. These are normal
// outcomes, never errors.
type ReasonCode string

const (
	ReasonNone          ReasonCode = ""
	ReasonNoSetup       ReasonCode = "NO_SETUP"
	ReasonBelowCutoff   ReasonCode = "BELOW_CUTOFF"
	ReasonSRClampReject ReasonCode = "SR_CLAMP_REJECT"
	ReasonMTFVeto       ReasonCode = "MTF_VETO"

	guardFailPrefix = "GUARD_FAIL:"
)

// GuardFail builds the reason code for a named guard
func GuardFail(guard string) ReasonCode {
	return ReasonCode(guardFailPrefix + guard)
}

// IsGuardFail reports whether the code came from a guard, and which one
func (r ReasonCode) IsGuardFail() (string, bool) {
	if !strings.HasPrefix(string(r), guardFailPrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(r), guardFailPrefix), true
}

// Kind collapses guard codes to GUARD_FAIL, for low-cardinality labels
func (r ReasonCode) Kind() string {
	if _, ok := r.IsGuardFail(); ok {
		return strings.TrimSuffix(guardFailPrefix, ":")
	}
	return string(r)
}
