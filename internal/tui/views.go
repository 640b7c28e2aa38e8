package tui

import (
	"fmt"
	"strings"

	"github.com/acompana/portal/internal/flow"
	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/routing"
)

// screenTitles maps route paths to the headings shown in navigation and
// content placeholders. The content behind each screen lives outside the
// portal core.
var screenTitles = map[string]string{
	routing.PathRoot:       "Home",
	routing.PathChat:       "Chat",
	routing.PathReminders:  "Reminders",
	routing.PathMemory:     "Memory exercises",
	routing.PathMessages:   "Messages",
	routing.PathInfo:       "My information",
	routing.PathCreateUser: "Create user",
	routing.PathPasswords:  "PIN manager",
}

// View renders the portal (required by Bubble Tea)
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}
	if a.quitting {
		return "Hasta pronto.\n"
	}

	d := routing.Resolve(a.state, a.path)
	switch d.Kind {
	case routing.KindLoading:
		return a.renderLoading()
	case routing.KindPublic:
		return a.renderPublic()
	case routing.KindVerifyingAccess:
		return a.renderVerifying()
	case routing.KindProfessionalShell:
		return a.renderProfessionalShell(d)
	case routing.KindSharedLayout:
		return a.renderSharedLayout(d)
	case routing.KindRedirect:
		// navigate resolves redirects before they render; this is only
		// reachable when the path was never normalized.
		return a.renderSharedLayout(routing.Resolve(a.state, d.RedirectTo))
	default:
		return a.renderNotFound()
	}
}

func (a *App) renderLoading() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.spin.View())
	b.WriteString(" Loading your session...\n")
	return b.String()
}

func (a *App) renderVerifying() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render("Verifying access"))
	b.WriteString("\n")
	b.WriteString(a.spin.View())
	b.WriteString(" ")
	b.WriteString(a.styles.Muted.Render("Please wait while we confirm your account."))
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderPublic() string {
	switch a.path {
	case routing.PathRoot:
		return a.renderLanding()
	case routing.PathRoleSelect:
		return a.renderRoleSelect()
	case routing.PathElderlyLogin:
		return a.renderElderlyLogin()
	case routing.PathFamilyLogin:
		return a.renderCredentialLogin("Family access")
	case routing.PathProfessionalLogin:
		return a.renderCredentialLogin("Professional access")
	default:
		return a.renderNotFound()
	}
}

func (a *App) renderLanding() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render("Acompaña"))
	b.WriteString("\n")
	b.WriteString(a.styles.Subtitle.Render("Your community care portal"))
	b.WriteString("\n\n")
	b.WriteString(a.helpLine("enter", "get started", "ctrl+c", "quit"))
	return b.String()
}

func (a *App) renderRoleSelect() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render("Who is using the portal?"))
	b.WriteString("\n\n")
	options := []struct {
		num   string
		label string
		hint  string
	}{
		{"1", "I receive care", "log in with your name and PIN"},
		{"2", "I am a family member", "log in with username and password"},
		{"3", "I am a care professional", "log in with username and password"},
	}
	for _, opt := range options {
		b.WriteString("  ")
		b.WriteString(a.styles.Key.Render(opt.num))
		b.WriteString("  ")
		b.WriteString(opt.label)
		b.WriteString("  ")
		b.WriteString(a.styles.Muted.Render(opt.hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.helpLine("1-3", "choose", "esc", "back"))
	return b.String()
}

func (a *App) renderElderlyLogin() string {
	if a.loginFlow == nil {
		return a.renderRoleSelect()
	}

	switch a.loginFlow.Stage() {
	case flow.StageNameEntry:
		var b strings.Builder
		b.WriteString("\n")
		if a.nameForm != nil {
			b.WriteString(a.nameForm.View())
		}
		b.WriteString("\n")
		b.WriteString(a.helpLine("enter", "continue", "esc", "back"))
		return b.String()

	case flow.StagePinEntry:
		return a.renderPinPad()
	}

	return a.renderRoleSelect()
}

// renderPinPad shows the entered digits as filled cells.
func (a *App) renderPinPad() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render(fmt.Sprintf("Hello, %s", a.loginFlow.Name())))
	b.WriteString("\n")
	b.WriteString(a.styles.Subtitle.Render("Enter your 4-digit PIN"))
	b.WriteString("\n\n  ")

	entered := len(a.loginFlow.PIN())
	cells := make([]string, 0, flow.PINLength)
	for i := 0; i < flow.PINLength; i++ {
		if i < entered {
			cells = append(cells, a.styles.PinCell.Render("●"))
		} else {
			cells = append(cells, a.styles.Muted.Render("○"))
		}
	}
	b.WriteString(strings.Join(cells, " "))
	b.WriteString("\n")

	if a.loginFlow.Submitting() {
		b.WriteString("\n")
		b.WriteString(a.spin.View())
		b.WriteString(" ")
		b.WriteString(a.styles.Muted.Render("Checking your PIN..."))
		b.WriteString("\n")
	} else if errText := a.loginFlow.ErrorText(); errText != "" {
		b.WriteString("\n")
		b.WriteString(a.styles.Error.Render(errText))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.helpLine("0-9", "digits", "backspace", "undo", "enter", "confirm", "esc", "back"))
	return b.String()
}

func (a *App) renderCredentialLogin(title string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n")

	if a.credSubmitting {
		b.WriteString(a.spin.View())
		b.WriteString(" ")
		b.WriteString(a.styles.Muted.Render("Signing in..."))
		b.WriteString("\n")
		return b.String()
	}

	if a.credError != "" {
		b.WriteString(a.styles.Error.Render(a.credError))
		b.WriteString("\n\n")
	}
	if a.credForm != nil {
		b.WriteString(a.credForm.View())
	}
	b.WriteString("\n")
	b.WriteString(a.helpLine("enter", "sign in", "esc", "back"))
	return b.String()
}

func (a *App) renderProfessionalShell(d routing.Decision) string {
	var b strings.Builder
	b.WriteString(a.styles.Banner.Render(fmt.Sprintf(" %s · professional ", a.state.Identity.DisplayName())))
	b.WriteString("\n\n")
	b.WriteString(a.renderNav(identity.RoleProfessional, d.Path))
	b.WriteString("\n\n")
	b.WriteString(a.renderScreen(d.Path))
	b.WriteString("\n\n")
	b.WriteString(a.helpLine("1-9", "navigate", "ctrl+l", "log out", "ctrl+c", "quit"))
	return b.String()
}

func (a *App) renderSharedLayout(d routing.Decision) string {
	var b strings.Builder
	b.WriteString(a.styles.Banner.Render(fmt.Sprintf(" %s · %s ", a.state.Identity.DisplayName(), d.Role)))
	b.WriteString("\n\n")
	b.WriteString(a.renderNav(d.Role, d.Path))
	b.WriteString("\n\n")
	b.WriteString(a.renderScreen(d.Path))
	b.WriteString("\n\n")
	b.WriteString(a.helpLine("1-9", "navigate", "ctrl+l", "log out", "ctrl+c", "quit"))
	return b.String()
}

// renderNav lists the role's reachable screens, highlighting the current
// one. Only allowlisted paths appear; other roles' screens do not exist
// here.
func (a *App) renderNav(role identity.Role, current string) string {
	var items []string
	for i, path := range routing.PathsFor(role) {
		label := fmt.Sprintf("%d %s", i+1, screenTitles[path])
		if path == current {
			items = append(items, a.styles.Selected.Render(label))
		} else {
			items = append(items, a.styles.Muted.Render(label))
		}
	}
	return "  " + strings.Join(items, "   ")
}

func (a *App) renderScreen(path string) string {
	title := screenTitles[path]
	if title == "" && strings.HasPrefix(path, routing.PathUsers+"/") {
		title = "User details"
	}
	if title == "" {
		title = "Home"
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(a.styles.Title.Render(title))
	return b.String()
}

func (a *App) renderNotFound() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(a.styles.Title.Render("Page not found"))
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render("The page you asked for does not exist."))
	b.WriteString("\n\n")
	b.WriteString(a.helpLine("ctrl+c", "quit"))
	return b.String()
}

// helpLine renders key/description pairs in the footer style.
func (a *App) helpLine(pairs ...string) string {
	var items []string
	for i := 0; i+1 < len(pairs); i += 2 {
		items = append(items, a.styles.Key.Render(pairs[i])+" "+a.styles.KeyDesc.Render(pairs[i+1]))
	}
	return a.styles.Help.Render("  " + strings.Join(items, " • "))
}
