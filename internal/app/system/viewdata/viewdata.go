// Package viewdata builds the view model fields every page shares.
package viewdata

import (
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/notify"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/gorilla/csrf"
)

// SiteName is shown in titles and the header.
const SiteName = "FuelBox"

// Navigation is a delayed client-side navigation.
type Navigation struct {
	URL     string
	DelayMS int64
}

// BaseVM contains the fields every page template uses.
// Embed it in feature view models:
//
//	data := homeData{BaseVM: viewdata.NewBaseVM(r, "Home", page, ttl)}
type BaseVM struct {
	SiteName    string
	Title       string
	CurrentPath string

	// Derived from the reconciled UIState.
	IsLoggedIn bool
	UserName   string

	// Regions already rendered for the UIState.
	Regions *view.Page

	// At most one notification, with its remaining display time.
	Notification *notify.View

	// CSRFField is the hidden input every POST form carries.
	CSRFField template.HTML

	Navigate *Navigation
}

// NewBaseVM fills the shared fields for r. page should already be rendered
// for the request's UIState.
func NewBaseVM(r *http.Request, title string, page *view.Page, ttl time.Duration) BaseVM {
	st := auth.CurrentState(r)
	return BaseVM{
		SiteName:     SiteName,
		Title:        title,
		CurrentPath:  r.URL.Path,
		IsLoggedIn:   st.IsAuthenticated(),
		UserName:     view.DisplayName(st),
		Regions:      page,
		Notification: notify.ViewOf(notify.FromContext(r.Context()).Get(), time.Now(), ttl),
		CSRFField:    csrf.TemplateField(r),
	}
}

// NavigateAfter schedules navigation to url after delay. The Refresh header
// covers clients that ignore the page's script and meta tag.
func (vm *BaseVM) NavigateAfter(w http.ResponseWriter, url string, delay time.Duration) {
	secs := int(math.Ceil(delay.Seconds()))
	w.Header().Set("Refresh", strconv.Itoa(secs)+"; url="+url)
	vm.Navigate = &Navigation{URL: url, DelayMS: delay.Milliseconds()}
}
