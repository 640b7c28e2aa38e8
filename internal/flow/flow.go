package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/acompana/portal/internal/identity"
)

// Stage identifies where the elderly login flow currently is.
type Stage int

const (
	// StageRoleSelect offers the three population choices
	StageRoleSelect Stage = iota
	// StageNameEntry captures the user's name
	StageNameEntry
	// StagePinEntry captures the 4-digit PIN and submits it
	StagePinEntry
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageRoleSelect:
		return "role-select"
	case StageNameEntry:
		return "name-entry"
	case StagePinEntry:
		return "pin-entry"
	default:
		return "unknown"
	}
}

// PINLength is the exact number of digits a PIN must have. This is an
// input constraint, not a security boundary; the remote service is the
// authority.
const PINLength = 4

var (
	// ErrIncompletePIN is reported client-side before any request is sent.
	ErrIncompletePIN = errors.New("enter all 4 digits of your PIN")

	// ErrSubmitInFlight guards against duplicate concurrent submissions.
	ErrSubmitInFlight = errors.New("a verification is already in progress")
)

// Verifier abstracts the remote PIN check.
type Verifier interface {
	VerifyPIN(ctx context.Context, pin, name, localityID string) (*identity.Identity, error)
}

// Flow is the elderly login state machine.
//
// It owns its transient state (stage, candidate name, PIN, in-flight
// flag) and is discarded once login succeeds or the user backs out. The
// PIN never outlives the flow; a failed verification clears it. The flow
// never talks to storage itself; session establishment goes through the
// session store's login operation.
type Flow struct {
	id         string
	localityID string
	stage      Stage
	name       string
	pin        []byte
	submitting bool
	errText    string
}

// New creates a flow at the role selection stage.
func New(localityID string) *Flow {
	return &Flow{
		id:         uuid.New().String(),
		localityID: localityID,
		stage:      StageRoleSelect,
	}
}

// ID returns the flow instance identifier, used for log correlation.
func (f *Flow) ID() string { return f.id }

// Stage returns the current stage.
func (f *Flow) Stage() Stage { return f.stage }

// Name returns the candidate name carried toward verification.
func (f *Flow) Name() string { return f.name }

// PIN returns the digits entered so far.
func (f *Flow) PIN() string { return string(f.pin) }

// Submitting reports whether a verification request is in flight.
func (f *Flow) Submitting() bool { return f.submitting }

// ErrorText returns the user-visible error for the current stage, or "".
func (f *Flow) ErrorText() string { return f.errText }

// LocalityID returns the locality the flow submits with.
func (f *Flow) LocalityID() string { return f.localityID }

// ChooseRole handles the role selection stage. Choosing elderly advances
// to name entry. Family and professional belong to the sibling credential
// login flow; external reports that the caller should navigate there.
func (f *Flow) ChooseRole(role identity.Role) (external bool) {
	if f.stage != StageRoleSelect {
		return false
	}
	if role == identity.RoleElderly {
		f.stage = StageNameEntry
		f.errText = ""
		return false
	}
	return role.Valid()
}

// CanContinue reports whether a name is acceptable to advance past name
// entry: anything non-empty once trimmed.
func CanContinue(name string) bool {
	return strings.TrimSpace(name) != ""
}

// Continue advances from name entry to PIN entry, carrying the trimmed
// name forward. It refuses an empty name or a call in the wrong stage.
func (f *Flow) Continue(name string) bool {
	if f.stage != StageNameEntry || !CanContinue(name) {
		return false
	}
	f.name = strings.TrimSpace(name)
	f.stage = StagePinEntry
	f.errText = ""
	return true
}

// PressDigit appends a digit to the PIN. A fifth digit is a no-op, as is
// any press outside the PIN entry stage or while submitting.
func (f *Flow) PressDigit(d byte) {
	if f.stage != StagePinEntry || f.submitting {
		return
	}
	if d < '0' || d > '9' {
		return
	}
	if len(f.pin) >= PINLength {
		return
	}
	f.pin = append(f.pin, d)
}

// Backspace removes the last entered digit. Backspace on an empty PIN is
// a no-op.
func (f *Flow) Backspace() {
	if f.stage != StagePinEntry || f.submitting {
		return
	}
	if len(f.pin) == 0 {
		return
	}
	f.pin = f.pin[:len(f.pin)-1]
}

// CanSubmit reports whether submission is currently enabled: exactly
// PINLength digits and no request in flight.
func (f *Flow) CanSubmit() bool {
	return f.stage == StagePinEntry && len(f.pin) == PINLength && !f.submitting
}

// BeginSubmit validates the PIN client-side and marks a submission in
// flight, returning the values to send. The caller issues the remote
// verification and reports the outcome through Fail or Settle; on
// success the flow is simply discarded once the session store commits.
func (f *Flow) BeginSubmit() (pin, name string, err error) {
	if f.stage != StagePinEntry {
		return "", "", ErrIncompletePIN
	}
	if f.submitting {
		return "", "", ErrSubmitInFlight
	}
	if len(f.pin) != PINLength {
		f.errText = ErrIncompletePIN.Error()
		return "", "", ErrIncompletePIN
	}
	f.submitting = true
	f.errText = ""
	return string(f.pin), f.name, nil
}

// Fail records a failed verification: the PIN is cleared so it must be
// re-entered, the in-flight flag drops, and the reason becomes visible.
// The user may resubmit from the same stage.
func (f *Flow) Fail(reason string) {
	if f.stage != StagePinEntry {
		return
	}
	f.pin = nil
	f.submitting = false
	f.errText = reason
}

// Settle clears the in-flight flag without touching the entered PIN or
// surfacing an error. Used when a verification result is discarded, for
// example when the returned identity failed validation and login never
// committed.
func (f *Flow) Settle() {
	f.submitting = false
}

// Back steps one stage backwards. Leaving PIN entry discards the PIN but
// preserves the name; leaving name entry discards the name. An in-flight
// request is not cancelled; its eventual result targets a stage that no
// longer exists and is safely ignorable.
func (f *Flow) Back() {
	switch f.stage {
	case StagePinEntry:
		f.pin = nil
		f.submitting = false
		f.errText = ""
		f.stage = StageNameEntry
	case StageNameEntry:
		f.name = ""
		f.errText = ""
		f.stage = StageRoleSelect
	}
}
