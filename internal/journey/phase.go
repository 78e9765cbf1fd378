package journey

import "errors"

// Phase is a top-level stage of the loan journey.
type Phase string

// Phases in the only order a journey may visit them.
const (
	PhaseIntake        Phase = "INTAKE"
	PhaseGapAnalysis   Phase = "GAP_ANALYSIS"
	PhasePreApproved   Phase = "PRE_APPROVED"
	PhaseCustomization Phase = "CUSTOMIZATION"
	PhaseCompliance    Phase = "COMPLIANCE"
	PhaseDisbursement  Phase = "DISBURSEMENT"
)

// AllPhases returns every phase in order.
func AllPhases() []Phase {
	return []Phase{
		PhaseIntake,
		PhaseGapAnalysis,
		PhasePreApproved,
		PhaseCustomization,
		PhaseCompliance,
		PhaseDisbursement,
	}
}

// Index returns the position of p in the phase graph, or -1 for an unknown phase.
func (p Phase) Index() int {
	for i, candidate := range AllPhases() {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IntakeStep is a sub-step of PhaseIntake.
type IntakeStep string

// Intake steps.
const (
	StepDestination IntakeStep = "DESTINATION"
	StepTravelers   IntakeStep = "TRAVELERS"
	StepCities      IntakeStep = "CITIES"
	StepAnalyzing   IntakeStep = "ANALYZING"
)

// ComplianceStep is a sub-step of PhaseCompliance.
type ComplianceStep string

// Compliance steps.
const (
	StepTerms   ComplianceStep = "TERMS"
	StepAadhaar ComplianceStep = "AADHAAR"
	StepENach   ComplianceStep = "ENACH"
)

// Sentinel errors for rejected transitions. A rejected call leaves the journey unchanged.
var (
	ErrWrongPhase   = errors.New("transition not valid in current phase")
	ErrInvalidInput = errors.New("invalid input")
	ErrBusy         = errors.New("journey is waiting on a pending step")
	ErrClosed       = errors.New("journey is closed")
)
