package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/routing"
	"github.com/acompana/portal/internal/session"
)

// fakeVerifier scripts the remote verification outcome.
type fakeVerifier struct {
	identity *identity.Identity
	err      error
	calls    int
	lastPIN  string
	lastName string
	lastLoc  string
}

func (v *fakeVerifier) VerifyPIN(ctx context.Context, pin, name, localityID string) (*identity.Identity, error) {
	v.calls++
	v.lastPIN = pin
	v.lastName = name
	v.lastLoc = localityID
	return v.identity, v.err
}

func TestChooseRole(t *testing.T) {
	f := New("madrid-03")
	assert.Equal(t, StageRoleSelect, f.Stage())

	external := f.ChooseRole(identity.RoleElderly)
	assert.False(t, external)
	assert.Equal(t, StageNameEntry, f.Stage())

	// Family and professional exit to the credential flow.
	for _, role := range []identity.Role{identity.RoleFamily, identity.RoleProfessional} {
		g := New("")
		assert.True(t, g.ChooseRole(role), "role %s", role)
		assert.Equal(t, StageRoleSelect, g.Stage(), "role %s", role)
	}

	// An unknown role goes nowhere.
	g := New("")
	assert.False(t, g.ChooseRole("admin"))
	assert.Equal(t, StageRoleSelect, g.Stage())
}

func TestNameEntry(t *testing.T) {
	f := New("")
	f.ChooseRole(identity.RoleElderly)

	assert.False(t, CanContinue("   "))
	assert.False(t, f.Continue("   "))
	assert.Equal(t, StageNameEntry, f.Stage())

	assert.True(t, f.Continue("  Marta "))
	assert.Equal(t, StagePinEntry, f.Stage())
	assert.Equal(t, "Marta", f.Name())
}

func TestPinClamping(t *testing.T) {
	f := pinStage(t, "Marta")

	// Backspace on an empty sequence is a no-op.
	f.Backspace()
	assert.Equal(t, "", f.PIN())

	for _, d := range []byte("12345") {
		f.PressDigit(d)
	}
	assert.Equal(t, "1234", f.PIN(), "fifth digit must be a no-op")

	f.PressDigit('x')
	assert.Equal(t, "1234", f.PIN())

	f.Backspace()
	assert.Equal(t, "123", f.PIN())
	assert.False(t, f.CanSubmit())

	f.PressDigit('9')
	assert.True(t, f.CanSubmit())
}

func TestSubmitGating(t *testing.T) {
	f := pinStage(t, "Marta")
	f.PressDigit('1')

	_, _, err := f.BeginSubmit()
	require.ErrorIs(t, err, ErrIncompletePIN)
	assert.Equal(t, ErrIncompletePIN.Error(), f.ErrorText())
	assert.False(t, f.Submitting())

	enterPIN(f, "234")

	pin, name, err := f.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
	assert.Equal(t, "Marta", name)
	assert.True(t, f.Submitting())
	assert.False(t, f.CanSubmit())

	// Re-entrant submission is refused while in flight.
	_, _, err = f.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	// Digits are ignored while submitting.
	f.PressDigit('9')
	assert.Equal(t, "1234", f.PIN())
}

func TestBackPreservesName(t *testing.T) {
	f := pinStage(t, "Marta")
	enterPIN(f, "12")

	f.Back()
	assert.Equal(t, StageNameEntry, f.Stage())
	assert.Equal(t, "Marta", f.Name(), "name survives backing out of PIN entry")
	assert.Equal(t, "", f.PIN(), "PIN is discarded")

	f.Back()
	assert.Equal(t, StageRoleSelect, f.Stage())
	assert.Equal(t, "", f.Name(), "name is discarded at role select")
}

func TestSuccessfulLoginScenario(t *testing.T) {
	// RoleSelect -> elderly -> "Marta" -> 1,2,3,4 -> verify succeeds ->
	// session authenticated -> shared layout with the elderly dashboard.
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), nil)
	store.Initialize(ctx)

	verifier := &fakeVerifier{identity: &identity.Identity{ID: "u1", Role: identity.RoleElderly, FirstName: "Marta"}}

	f := New("madrid-03")
	assert.False(t, f.ChooseRole(identity.RoleElderly))
	require.True(t, f.Continue("Marta"))
	enterPIN(f, "1234")
	require.True(t, f.CanSubmit())

	pin, name, err := f.BeginSubmit()
	require.NoError(t, err)

	id, err := verifier.VerifyPIN(ctx, pin, name, f.LocalityID())
	require.NoError(t, err)
	require.True(t, store.Login(ctx, id))

	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, "1234", verifier.lastPIN)
	assert.Equal(t, "Marta", verifier.lastName)
	assert.Equal(t, "madrid-03", verifier.lastLoc)

	st := store.State()
	require.Equal(t, session.PhaseAuthenticated, st.Phase)
	assert.Equal(t, "u1", st.Identity.ID)

	d := routing.Resolve(st, routing.PathRoot)
	assert.Equal(t, routing.KindSharedLayout, d.Kind)
	assert.Equal(t, identity.RoleElderly, d.Role)
}

func TestRejectedPinScenario(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), nil)
	store.Initialize(ctx)

	verifier := &fakeVerifier{err: errors.New("PIN incorrecto")}

	f := New("")
	f.ChooseRole(identity.RoleElderly)
	require.True(t, f.Continue("Marta"))
	enterPIN(f, "1234")

	pin, name, err := f.BeginSubmit()
	require.NoError(t, err)

	_, verr := verifier.VerifyPIN(ctx, pin, name, f.LocalityID())
	require.Error(t, verr)
	f.Fail(verr.Error())

	assert.Equal(t, StagePinEntry, f.Stage(), "flow stays on PIN entry")
	assert.Equal(t, "", f.PIN(), "PIN reset for re-entry")
	assert.False(t, f.Submitting())
	assert.Equal(t, "PIN incorrecto", f.ErrorText())
	assert.Equal(t, session.PhaseUnauthenticated, store.State().Phase, "session unchanged")

	// The user may retry from the same stage.
	enterPIN(f, "4321")
	assert.True(t, f.CanSubmit())
}

func TestDiscardedResultSettles(t *testing.T) {
	// When the server returns an identity the store refuses, the flow is
	// left as if the call never happened: same stage, PIN intact, ready
	// to submit again.
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), nil)
	store.Initialize(ctx)

	f := pinStage(t, "Marta")
	enterPIN(f, "1234")
	_, _, err := f.BeginSubmit()
	require.NoError(t, err)

	ok := store.Login(ctx, &identity.Identity{ID: "u1"}) // no role
	require.False(t, ok)
	f.Settle()

	assert.Equal(t, StagePinEntry, f.Stage())
	assert.Equal(t, "1234", f.PIN())
	assert.True(t, f.CanSubmit())
	assert.Equal(t, session.PhaseUnauthenticated, store.State().Phase)
}

func pinStage(t *testing.T, name string) *Flow {
	t.Helper()
	f := New("")
	f.ChooseRole(identity.RoleElderly)
	if !f.Continue(name) {
		t.Fatalf("continue with %q failed", name)
	}
	return f
}

func enterPIN(f *Flow, digits string) {
	for i := 0; i < len(digits); i++ {
		f.PressDigit(digits[i])
	}
}
