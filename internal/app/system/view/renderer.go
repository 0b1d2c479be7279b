package view

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/htmlsanitize"
)

// LogoutControl is the id of the sign-out button in the user-info block.
const LogoutControl = "logout-btn"

var (
	userInfoTmpl = template.Must(template.New("user-info").Parse(
		`<div class="user-info"><span class="user-name">{{.}}</span>` +
			`<button id="logout-btn" type="submit" form="logout-btn-form" class="btn btn-logout">Logout</button></div>`))

	authLinksTmpl = template.Must(template.New("auth-links").Parse(
		`<a href="/login" class="nav-link">Login</a><a href="/register" class="nav-link">Register</a>`))
)

// Renderer maps a UIState onto a page's regions. Render is synchronous and
// idempotent: rendering the same state twice leaves the same regions.
type Renderer struct {
	// LogoutAction is where the logout control posts.
	LogoutAction string
}

// NewRenderer returns a renderer whose logout control posts to /logout.
func NewRenderer() *Renderer {
	return &Renderer{LogoutAction: "/logout"}
}

// DisplayName is the text shown for the signed-in principal, stripped of
// markup.
func DisplayName(st auth.UIState) string {
	p := st.Principal()
	if p == nil {
		return ""
	}
	if name := htmlsanitize.StripTags(p.Name()); name != "" {
		return name
	}
	return htmlsanitize.StripTags(p.Email)
}

// Render updates reg for st. Regions missing from reg are skipped.
func (rd *Renderer) Render(st auth.UIState, reg Registry) {
	if st.IsAuthenticated() {
		rd.renderAuthenticated(st, reg)
	} else {
		rd.renderAnonymous(reg)
	}
}

func (rd *Renderer) renderAuthenticated(st auth.UIState, reg Registry) {
	name := DisplayName(st)

	if r := reg.Region(AuthSection); r != nil {
		r.Hide()
	}
	if r := reg.Region(Dashboard); r != nil {
		r.Show()
	}
	if r := reg.Region(WelcomeMessage); r != nil {
		r.SetText("Welcome, " + name)
	}
	if r := reg.Region(AuthDropdown); r != nil {
		r.Replace(execute(userInfoTmpl, name))
		r.Bind(Binding{Control: LogoutControl, Method: http.MethodPost, Action: rd.LogoutAction})
	}
}

func (rd *Renderer) renderAnonymous(reg Registry) {
	if r := reg.Region(AuthSection); r != nil {
		r.Show()
	}
	if r := reg.Region(Dashboard); r != nil {
		r.Hide()
	}
	if r := reg.Region(WelcomeMessage); r != nil {
		r.SetText("")
	}
	if r := reg.Region(AuthDropdown); r != nil {
		r.Replace(execute(authLinksTmpl, nil))
	}
}

func execute(t *template.Template, data any) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// The templates are static; a failure here is a programming error.
		panic(err)
	}
	return template.HTML(buf.String())
}
