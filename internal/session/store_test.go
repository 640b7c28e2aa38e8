package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acompana/portal/internal/identity"
)

// countingStorage records operations so tests can assert what the store
// actually touched.
type countingStorage struct {
	*MemoryStorage
	saves  int
	clears int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{MemoryStorage: NewMemoryStorage()}
}

func (c *countingStorage) Save(ctx context.Context, id *identity.Identity) error {
	c.saves++
	return c.MemoryStorage.Save(ctx, id)
}

func (c *countingStorage) Clear(ctx context.Context) error {
	c.clears++
	return c.MemoryStorage.Clear(ctx)
}

// failingStorage simulates unreadable durable storage.
type failingStorage struct {
	*MemoryStorage
	loadErr error
}

func (f *failingStorage) Load(ctx context.Context) (*identity.Identity, error) {
	return nil, f.loadErr
}

func TestStoreStartsLoading(t *testing.T) {
	store := NewStore(NewMemoryStorage(), nil)
	assert.Equal(t, PhaseLoading, store.State().Phase)
}

func TestInitializeEmptyStorage(t *testing.T) {
	store := NewStore(NewMemoryStorage(), nil)
	store.Initialize(context.Background())

	st := store.State()
	assert.Equal(t, PhaseUnauthenticated, st.Phase)
	assert.Nil(t, st.Identity)
}

func TestInitializeRestoresValidIdentity(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, &identity.Identity{ID: "u1", Role: identity.RoleElderly, FirstName: "Marta"}))

	store := NewStore(storage, nil)
	store.Initialize(ctx)

	st := store.State()
	require.Equal(t, PhaseAuthenticated, st.Phase)
	assert.Equal(t, "u1", st.Identity.ID)
	assert.Equal(t, identity.RoleElderly, st.Identity.Role)
}

func TestInitializeScrubsInvalidIdentity(t *testing.T) {
	// A stored identity without a role must be discarded and the storage
	// entry removed, leaving the session absent.
	ctx := context.Background()
	storage := newCountingStorage()
	storage.id = &identity.Identity{ID: "u1"}

	store := NewStore(storage, nil)
	store.Initialize(ctx)

	assert.Equal(t, PhaseUnauthenticated, store.State().Phase)
	assert.Equal(t, 1, storage.clears)

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestInitializeScrubsUnreadableStorage(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{
		MemoryStorage: NewMemoryStorage(),
		loadErr:       WrapError(ErrStorageCorrupt, "parse session file", errors.New("unexpected end of JSON input")),
	}

	store := NewStore(storage, nil)
	store.Initialize(ctx)

	assert.Equal(t, PhaseUnauthenticated, store.State().Phase)
}

func TestInitializeRunsOnce(t *testing.T) {
	ctx := context.Background()
	storage := newCountingStorage()
	store := NewStore(storage, nil)

	store.Initialize(ctx)
	require.True(t, store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleFamily}))

	// A second Initialize must not re-read storage and clobber the session.
	store.Initialize(ctx)
	assert.Equal(t, PhaseAuthenticated, store.State().Phase)
}

func TestLoginValidIdentity(t *testing.T) {
	ctx := context.Background()
	storage := newCountingStorage()
	store := NewStore(storage, nil)
	store.Initialize(ctx)

	ok := store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleElderly, FirstName: "Marta"})
	require.True(t, ok)

	st := store.State()
	assert.Equal(t, PhaseAuthenticated, st.Phase)
	assert.Equal(t, "Marta", st.Identity.FirstName)
	assert.Equal(t, 1, storage.saves)

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.ID)
}

func TestLoginRejectsInvalidIdentity(t *testing.T) {
	tests := []struct {
		name string
		id   *identity.Identity
	}{
		{"nil", nil},
		{"missing id", &identity.Identity{Role: identity.RoleElderly}},
		{"missing role", &identity.Identity{ID: "u1"}},
		{"unknown role", &identity.Identity{ID: "u1", Role: "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := newCountingStorage()
			store := NewStore(storage, nil)
			store.Initialize(ctx)

			ok := store.Login(ctx, tt.id)
			assert.False(t, ok)
			assert.Equal(t, PhaseUnauthenticated, store.State().Phase)
			assert.Zero(t, storage.saves, "invalid login must not write storage")
		})
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	storage := newCountingStorage()
	store := NewStore(storage, nil)
	store.Initialize(ctx)
	require.True(t, store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleFamily}))

	store.Logout(ctx)

	assert.Equal(t, PhaseUnauthenticated, store.State().Phase)

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored, "storage must no longer hold the identity")
}

func TestLogoutEmitsReset(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	store.Initialize(ctx)
	require.True(t, store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleElderly}))

	var events []Event
	unsubscribe := store.Subscribe(func(ev Event) {
		events = append(events, ev)
	})
	defer unsubscribe()

	store.Logout(ctx)

	require.Len(t, events, 1)
	assert.True(t, events[0].Reset)
	assert.Equal(t, PhaseUnauthenticated, events[0].State.Phase)
}

func TestSubscribersSeeCommittedState(t *testing.T) {
	// Observers must never see a half-updated state: by the time an event
	// arrives, State() already reflects the mutation.
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	store.Initialize(ctx)

	var observed []Phase
	store.Subscribe(func(ev Event) {
		observed = append(observed, store.State().Phase)
		assert.Equal(t, ev.State.Phase, store.State().Phase)
	})

	store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleElderly})
	store.Logout(ctx)

	assert.Equal(t, []Phase{PhaseAuthenticated, PhaseUnauthenticated}, observed)
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	store.Initialize(ctx)

	calls := 0
	unsubscribe := store.Subscribe(func(Event) { calls++ })
	store.Login(ctx, &identity.Identity{ID: "u1", Role: identity.RoleElderly})
	unsubscribe()
	store.Logout(ctx)

	assert.Equal(t, 1, calls)
}
