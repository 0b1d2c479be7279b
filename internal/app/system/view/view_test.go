package view_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
)

func fullPage() *view.Page {
	return view.NewPage(view.AuthSection, view.Dashboard, view.WelcomeMessage, view.AuthDropdown)
}

func TestRender_Anonymous(t *testing.T) {
	p := fullPage()
	view.NewRenderer().Render(auth.Anonymous(), p)

	if p.Region(view.AuthSection).Hidden {
		t.Error("auth-section should be visible")
	}
	if !p.Region(view.Dashboard).Hidden {
		t.Error("dashboard should be hidden")
	}
	m := string(p.Region(view.AuthDropdown).Markup)
	if !strings.Contains(m, `href="/login"`) || !strings.Contains(m, `href="/register"`) {
		t.Errorf("auth-dropdown should link to login and register, got %q", m)
	}
	if len(p.Region(view.AuthDropdown).Bindings) != 0 {
		t.Error("anonymous dropdown has no controls to bind")
	}
}

func TestRender_AuthenticatedFallsBackToEmail(t *testing.T) {
	p := fullPage()
	st := auth.Authenticated(&backend.Principal{ID: "u1", Email: "a@b.com"})
	view.NewRenderer().Render(st, p)

	if !p.Region(view.AuthSection).Hidden {
		t.Error("auth-section should be hidden")
	}
	if p.Region(view.Dashboard).Hidden {
		t.Error("dashboard should be visible")
	}
	if got, want := p.Region(view.WelcomeMessage).Text, "Welcome, a@b.com"; got != want {
		t.Errorf("welcome: got %q, want %q", got, want)
	}

	dd := p.Region(view.AuthDropdown)
	if !strings.Contains(string(dd.Markup), "a@b.com") || !strings.Contains(string(dd.Markup), `id="logout-btn"`) {
		t.Errorf("user-info block: got %q", dd.Markup)
	}
	want := []view.Binding{{Control: view.LogoutControl, Method: "POST", Action: "/logout"}}
	if !reflect.DeepEqual(dd.Bindings, want) {
		t.Errorf("bindings: got %+v, want %+v", dd.Bindings, want)
	}
}

func TestRender_DisplayNameStripped(t *testing.T) {
	p := fullPage()
	st := auth.Authenticated(&backend.Principal{ID: "u1", Email: "a@b.com", DisplayName: "<img src=x onerror=alert(1)>Sam"})
	view.NewRenderer().Render(st, p)

	if got, want := p.Region(view.WelcomeMessage).Text, "Welcome, Sam"; got != want {
		t.Errorf("welcome: got %q, want %q", got, want)
	}
	if strings.Contains(string(p.Region(view.AuthDropdown).Markup), "onerror") {
		t.Error("markup must not carry the injected attribute")
	}
}

func TestRender_Idempotent(t *testing.T) {
	st := auth.Authenticated(&backend.Principal{ID: "u1", Email: "a@b.com", DisplayName: "Alex"})
	rd := view.NewRenderer()

	once := fullPage()
	rd.Render(st, once)

	twice := fullPage()
	rd.Render(st, twice)
	rd.Render(st, twice)

	for _, id := range []string{view.AuthSection, view.Dashboard, view.WelcomeMessage, view.AuthDropdown} {
		if !reflect.DeepEqual(once.Region(id), twice.Region(id)) {
			t.Errorf("region %s differs: %+v vs %+v", id, once.Region(id), twice.Region(id))
		}
	}
}

func TestRender_LoginThenLogout(t *testing.T) {
	p := fullPage()
	rd := view.NewRenderer()

	rd.Render(auth.Authenticated(&backend.Principal{ID: "u1", Email: "a@b.com"}), p)
	rd.Render(auth.Anonymous(), p)

	if p.Region(view.AuthSection).Hidden || !p.Region(view.Dashboard).Hidden {
		t.Error("expected anonymous visibility after logout")
	}
	if got := p.Region(view.WelcomeMessage).Text; got != "" {
		t.Errorf("welcome text should be cleared, got %q", got)
	}
	dd := p.Region(view.AuthDropdown)
	if strings.Contains(string(dd.Markup), "logout-btn") {
		t.Errorf("logout control should be gone, got %q", dd.Markup)
	}
	if len(dd.Bindings) != 0 {
		t.Errorf("stale bindings left: %+v", dd.Bindings)
	}
}

func TestRender_MissingRegionsSkipped(t *testing.T) {
	p := view.NewPage(view.AuthDropdown)
	view.NewRenderer().Render(auth.Authenticated(&backend.Principal{ID: "u1", Email: "a@b.com"}), p)

	if p.Has(view.Dashboard) {
		t.Error("renderer must not create regions")
	}
	if p.Region(view.AuthDropdown).Markup == "" {
		t.Error("present region should still render")
	}
}

func TestRegion_ReplaceDropsBindings(t *testing.T) {
	r := &view.Region{ID: "x"}
	r.Bind(view.Binding{Control: "c", Method: "POST", Action: "/a"})
	r.Bind(view.Binding{Control: "c", Method: "POST", Action: "/b"})
	if len(r.Bindings) != 1 || r.Bindings[0].Action != "/b" {
		t.Fatalf("rebinding same control: got %+v", r.Bindings)
	}
	r.Replace("<p>new</p>")
	if len(r.Bindings) != 0 {
		t.Error("Replace should drop bindings")
	}
}
