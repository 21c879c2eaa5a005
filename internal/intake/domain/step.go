package domain

import "errors"

// Step is the position of a session in the intake flow.
type Step string

const (
	StepContactInfo      Step = "contact_info"
	StepPersonalInfo     Step = "personal_info"
	StepProfessionalInfo Step = "professional_info"
	StepVerification     Step = "verification"
	StepSuccess          Step = "success"
	StepAbandoned        Step = "abandoned"
)

// Terminal reports whether no further transitions are possible from s.
func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepAbandoned
}

// Action is a user- or system-initiated event that may move a session between steps.
type Action string

const (
	ActionSubmitContact      Action = "submit_contact"
	ActionSubmitPersonal     Action = "submit_personal"
	ActionSubmitProfessional Action = "submit_professional"
	ActionSkipProfessional   Action = "skip_professional"
	ActionBack               Action = "back"
	ActionEdit               Action = "edit"
	ActionComplete           Action = "complete"
	ActionClose              Action = "close"
)

// ErrInvalidTransition is returned when an action is not allowed from the current step.
var ErrInvalidTransition = errors.New("invalid step transition")

// Next returns the step reached by applying a in step from. Validation gates and side effects are the
// caller's job; Next only encodes which edges exist.
func Next(from Step, a Action) (Step, error) {
	if a == ActionClose {
		if from.Terminal() {
			return from, ErrInvalidTransition
		}
		return StepAbandoned, nil
	}
	switch from {
	case StepContactInfo:
		if a == ActionSubmitContact {
			return StepPersonalInfo, nil
		}
	case StepPersonalInfo:
		switch a {
		case ActionSubmitPersonal:
			return StepProfessionalInfo, nil
		case ActionBack:
			return StepContactInfo, nil
		}
	case StepProfessionalInfo:
		switch a {
		case ActionSubmitProfessional, ActionSkipProfessional:
			return StepVerification, nil
		case ActionBack:
			return StepPersonalInfo, nil
		}
	case StepVerification:
		switch a {
		case ActionBack:
			return StepProfessionalInfo, nil
		case ActionEdit:
			return StepContactInfo, nil
		case ActionComplete:
			return StepSuccess, nil
		}
	}
	return from, ErrInvalidTransition
}
