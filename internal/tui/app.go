package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/acompana/portal/internal/authapi"
	"github.com/acompana/portal/internal/flow"
	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/log"
	"github.com/acompana/portal/internal/routing"
	"github.com/acompana/portal/internal/session"
)

// Authenticator abstracts the remote authentication service for the
// view layer: the flow's PIN verifier plus the credential check used by
// the family and professional logins.
type Authenticator interface {
	flow.Verifier
	VerifyCredentials(ctx context.Context, username, password, localityID string) (*identity.Identity, error)
}

// genericRetryText is shown when verification fails for reasons other
// than a rejection (network down, service unavailable).
const genericRetryText = "We could not check your details. Please try again."

// App is the portal's top-level Bubble Tea model.
//
// All state transitions happen on discrete events inside Update: key
// presses, the storage read finishing, and verification results. The
// visible screen is derived from the session state through the routing
// decision table on every render.
type App struct {
	store      *session.Store
	auth       Authenticator
	logger     *log.Logger
	localityID string

	state session.State
	path  string

	// Elderly login flow state, nil when no flow is active.
	loginFlow *flow.Flow
	nameForm  *huh.Form
	nameValue string

	// Family/professional credential login state.
	credRole       identity.Role
	credForm       *huh.Form
	credUser       string
	credPass       string
	credSubmitting bool
	credError      string

	events chan session.Event
	spin   spinner.Model
	styles Styles
	keys   keyMap

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewApp creates the portal application model. The session store must
// not be initialized yet; the app drives initialization itself so the
// loading screen shows until the storage read completes.
func NewApp(store *session.Store, auth Authenticator, localityID string, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Discard()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := &App{
		store:      store,
		auth:       auth,
		logger:     logger.With("component", "tui"),
		localityID: localityID,
		state:      store.State(),
		path:       routing.PathRoot,
		events:     make(chan session.Event, 16),
		spin:       sp,
		styles:     DefaultStyles(),
		keys:       keys,
	}

	// Session changes made outside this model (or by our own commands)
	// arrive through the event channel and re-derive the view.
	store.Subscribe(func(ev session.Event) {
		select {
		case a.events <- ev:
		default:
			// The channel is a refresh signal; dropping under pressure
			// is fine because the next read sees the latest state.
		}
	})

	return a
}

// Messages

type initDoneMsg struct {
	state session.State
}

type sessionEventMsg struct {
	event session.Event
}

type pinResultMsg struct {
	flowID   string
	identity *identity.Identity
	err      error
}

type credResultMsg struct {
	identity *identity.Identity
	err      error
}

// Init initializes the model (required by Bubble Tea)
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.initialize, a.nextEvent)
}

// initialize reads the persisted session off the event loop.
func (a *App) initialize() tea.Msg {
	a.store.Initialize(context.Background())
	return initDoneMsg{state: a.store.State()}
}

// nextEvent waits for the next session event.
func (a *App) nextEvent() tea.Msg {
	ev, ok := <-a.events
	if !ok {
		return nil
	}
	return sessionEventMsg{event: ev}
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case initDoneMsg:
		a.applyState(msg.state)
		return a, nil

	case sessionEventMsg:
		a.applyState(msg.event.State)
		if msg.event.Reset {
			a.resetSessionScoped()
		}
		return a, a.nextEvent

	case pinResultMsg:
		return a, a.handlePinResult(msg)

	case credResultMsg:
		return a, a.handleCredResult(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateForms(msg)
}

// applyState adopts a new session snapshot. Reaching the authenticated
// phase ends any login flow; the router mounts the role's surface
// instead.
func (a *App) applyState(st session.State) {
	wasAuthenticated := a.state.Phase == session.PhaseAuthenticated
	a.state = st
	if st.Phase == session.PhaseAuthenticated && !wasAuthenticated {
		a.loginFlow = nil
		a.nameForm = nil
		a.credForm = nil
		a.credUser, a.credPass = "", ""
		a.credSubmitting = false
		a.credError = ""
		a.path = routing.PathRoot
	}
}

// resetSessionScoped drops everything derived from the previous session.
// Nothing cached under the old role may survive a logout.
func (a *App) resetSessionScoped() {
	a.loginFlow = nil
	a.nameForm = nil
	a.nameValue = ""
	a.credForm = nil
	a.credUser, a.credPass = "", ""
	a.credSubmitting = false
	a.credError = ""
	a.path = routing.PathRoot
}

// navigate applies a path change through the routing table, following
// soft redirects immediately.
func (a *App) navigate(path string) {
	d := routing.Resolve(a.state, path)
	if d.Kind == routing.KindRedirect {
		path = d.RedirectTo
	}
	a.path = path
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		a.quitting = true
		return a, tea.Quit
	}

	d := routing.Resolve(a.state, a.path)
	switch d.Kind {
	case routing.KindLoading, routing.KindVerifyingAccess:
		return a, nil

	case routing.KindPublic:
		return a.handlePublicKey(msg)

	case routing.KindProfessionalShell, routing.KindSharedLayout:
		return a.handleAuthenticatedKey(msg, d)
	}

	return a, nil
}

func (a *App) handlePublicKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.path {
	case routing.PathRoot:
		if key.Matches(msg, a.keys.Select) {
			a.navigate(routing.PathRoleSelect)
		}
		return a, nil

	case routing.PathRoleSelect:
		return a.handleRoleSelectKey(msg)

	case routing.PathElderlyLogin:
		return a.handleElderlyLoginKey(msg)

	case routing.PathFamilyLogin, routing.PathProfessionalLogin:
		return a.handleCredentialKey(msg)
	}

	return a, nil
}

func (a *App) handleRoleSelectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Back) {
		a.loginFlow = nil
		a.navigate(routing.PathRoot)
		return a, nil
	}

	var role identity.Role
	switch msg.String() {
	case "1":
		role = identity.RoleElderly
	case "2":
		role = identity.RoleFamily
	case "3":
		role = identity.RoleProfessional
	default:
		return a, nil
	}

	if a.loginFlow == nil {
		a.loginFlow = flow.New(a.localityID)
	}

	external := a.loginFlow.ChooseRole(role)
	if !external {
		// Elderly: the flow advanced to name entry.
		a.buildNameForm()
		a.navigate(routing.PathElderlyLogin)
		return a, a.nameForm.Init()
	}

	// Family and professional use the credential login flow.
	a.loginFlow = nil
	a.credRole = role
	a.buildCredForm()
	if role == identity.RoleFamily {
		a.navigate(routing.PathFamilyLogin)
	} else {
		a.navigate(routing.PathProfessionalLogin)
	}
	return a, a.credForm.Init()
}

func (a *App) handleElderlyLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.loginFlow == nil {
		a.navigate(routing.PathRoleSelect)
		return a, nil
	}

	switch a.loginFlow.Stage() {
	case flow.StageNameEntry:
		if key.Matches(msg, a.keys.Back) {
			a.loginFlow.Back()
			a.nameForm = nil
			a.navigate(routing.PathRoleSelect)
			return a, nil
		}
		return a.updateForms(msg)

	case flow.StagePinEntry:
		return a.handlePinKey(msg)
	}

	return a, nil
}

func (a *App) handlePinKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back):
		a.loginFlow.Back()
		a.buildNameForm()
		return a, a.nameForm.Init()

	case key.Matches(msg, a.keys.Select):
		return a, a.submitPIN()

	case msg.String() == "backspace":
		a.loginFlow.Backspace()
		return a, nil

	default:
		s := msg.String()
		if len(s) == 1 {
			a.loginFlow.PressDigit(s[0])
		}
		return a, nil
	}
}

// submitPIN starts a verification request for the current flow. The
// result message carries the flow instance ID so a stale response from
// an abandoned flow is ignorable.
func (a *App) submitPIN() tea.Cmd {
	pin, name, err := a.loginFlow.BeginSubmit()
	if err != nil {
		// The flow already holds the user-visible incomplete-PIN error.
		return nil
	}

	flowID := a.loginFlow.ID()
	localityID := a.localityID
	auth := a.auth
	a.logger.Debug("submitting pin verification", "flow_id", flowID)

	return func() tea.Msg {
		id, err := auth.VerifyPIN(context.Background(), pin, name, localityID)
		return pinResultMsg{flowID: flowID, identity: id, err: err}
	}
}

func (a *App) handlePinResult(msg pinResultMsg) tea.Cmd {
	if a.loginFlow == nil || a.loginFlow.ID() != msg.flowID {
		// The flow this result targeted no longer exists.
		a.logger.Debug("dropping stale verification result", "flow_id", msg.flowID)
		return nil
	}

	if msg.err != nil {
		if authapi.IsRejected(msg.err) {
			a.loginFlow.Fail(msg.err.Error())
		} else {
			a.loginFlow.Fail(genericRetryText)
		}
		return nil
	}

	if ok := a.store.Login(context.Background(), msg.identity); !ok {
		// The service returned an identity the session refused; treat
		// the attempt as if it never happened.
		a.loginFlow.Settle()
		return nil
	}

	// The session event drives the router away from the flow.
	return nil
}

func (a *App) handleCredentialKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Back) && !a.credSubmitting {
		a.credForm = nil
		a.credUser, a.credPass = "", ""
		a.credError = ""
		a.navigate(routing.PathRoleSelect)
		return a, nil
	}
	return a.updateForms(msg)
}

// submitCredentials starts a credential verification for the family or
// professional login.
func (a *App) submitCredentials() tea.Cmd {
	a.credSubmitting = true
	a.credError = ""

	username, password := a.credUser, a.credPass
	localityID := a.localityID
	auth := a.auth

	return func() tea.Msg {
		id, err := auth.VerifyCredentials(context.Background(), username, password, localityID)
		return credResultMsg{identity: id, err: err}
	}
}

func (a *App) handleCredResult(msg credResultMsg) tea.Cmd {
	a.credSubmitting = false

	if msg.err != nil {
		if authapi.IsRejected(msg.err) {
			a.credError = msg.err.Error()
		} else {
			a.credError = genericRetryText
		}
		a.credPass = ""
		a.buildCredForm()
		return a.credForm.Init()
	}

	if ok := a.store.Login(context.Background(), msg.identity); !ok {
		a.buildCredForm()
		return a.credForm.Init()
	}
	return nil
}

func (a *App) handleAuthenticatedKey(msg tea.KeyMsg, d routing.Decision) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Logout) {
		a.store.Logout(context.Background())
		// The reset event clears the rest; drop the path right away so
		// this frame already renders the landing page.
		a.resetSessionScoped()
		return a, nil
	}

	// Number keys navigate the role's route set.
	items := routing.PathsFor(d.Role)
	s := msg.String()
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		idx := int(s[0] - '1')
		if idx < len(items) {
			a.navigate(items[idx])
		}
	}
	return a, nil
}

// updateForms forwards a message to whichever huh form is active and
// reacts to its completion.
func (a *App) updateForms(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.nameForm != nil && a.loginFlow != nil && a.loginFlow.Stage() == flow.StageNameEntry {
		form, cmd := a.nameForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			a.nameForm = f
			if a.nameForm.State == huh.StateCompleted {
				name := a.nameForm.GetString("name")
				if a.loginFlow.Continue(name) {
					a.nameForm = nil
				}
			}
		}
		return a, cmd
	}

	if a.credForm != nil && !a.credSubmitting {
		form, cmd := a.credForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			a.credForm = f
			if a.credForm.State == huh.StateCompleted {
				a.credUser = a.credForm.GetString("username")
				a.credPass = a.credForm.GetString("password")
				return a, a.submitCredentials()
			}
		}
		return a, cmd
	}

	return a, nil
}

// buildNameForm creates the name entry form, pre-filled with the name
// carried by the flow so backing out of PIN entry keeps it.
func (a *App) buildNameForm() {
	a.nameValue = a.loginFlow.Name()
	a.nameForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("What is your name?").
				Description("We use it to find your account").
				Value(&a.nameValue).
				Validate(func(s string) error {
					if !flow.CanContinue(s) {
						return fmt.Errorf("please tell us your name")
					}
					return nil
				}),
		),
	)
}

// buildCredForm creates the username/password form for the family and
// professional logins.
func (a *App) buildCredForm() {
	a.credForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Username").
				Value(&a.credUser).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("username is required")
					}
					return nil
				}),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&a.credPass).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),
		),
	)
}

// Run starts the portal UI and blocks until it exits.
func Run(app *App) error {
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run portal UI: %w", err)
	}
	return nil
}
