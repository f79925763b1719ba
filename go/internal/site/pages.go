package site

import (
	"net/http"

	"github.com/igacmun/site/go/internal/registration"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
)

type navItem struct {
	Href  string
	Label string
}

var navigation = []navItem{
	{Href: "/", Label: "Home"},
	{Href: "/about", Label: "About"},
	{Href: "/events", Label: "Events"},
	{Href: "/session-3", Label: "Session III"},
	{Href: "/secretariats", Label: "Secretariats"},
	{Href: "/gallery", Label: "Gallery"},
	{Href: "/contact", Label: "Contact"},
}

type pageData struct {
	Path   string
	Event  siteconfig.Event
	Social siteconfig.Social
	Nav    []navItem
	Data   any
}

// GatedSection is what a page needs to choose between a countdown and the
// section content.
type GatedSection struct {
	Section     siteconfig.Section
	RevealAt    string
	Revealed    bool
	Countdown   reveal.Snapshot
	Heading     string
	Description string
}

var countdownCopy = map[siteconfig.Section][2]string{
	siteconfig.SectionCommittees: {
		"Committees will be revealed in",
		"The diplomatic battlegrounds will be unveiled soon. Prepare for unprecedented challenges across diverse global issues.",
	},
	siteconfig.SectionSchedule: {
		"Schedule Reveal",
		"The complete conference timeline will be unveiled soon. Prepare for an intensive diplomatic experience.",
	},
	siteconfig.SectionVenue: {
		"Venue Reveal",
		"The conference venue will be announced soon.",
	},
	siteconfig.SectionSecretariats: {
		"Secretariats Reveal",
		"Meet the minds behind the conference. The secretariat will be unveiled soon.",
	},
}

// gate evaluates section once for the current request. A section with its
// countdown disabled is always revealed.
func (s *Server) gate(section siteconfig.Section) GatedSection {
	rv, err := s.site.Reveal(section)
	g := GatedSection{
		Section:     section,
		RevealAt:    rv.RevealAt,
		Revealed:    true,
		Heading:     countdownCopy[section][0],
		Description: countdownCopy[section][1],
	}
	if err != nil || !rv.EnableCountdown {
		return g
	}
	g.Countdown = reveal.Evaluate(rv.RevealAt, s.clock.Now())
	g.Revealed = g.Countdown.Revealed
	return g
}

func (s *Server) page(r *http.Request, data any) pageData {
	return pageData{
		Path:   r.URL.Path,
		Event:  s.site.Event,
		Social: s.site.Social,
		Nav:    navigation,
		Data:   data,
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusOK, pageHome, s.page(r, struct {
		Leadership    []siteconfig.Leader
		Committees    GatedSection
		CommitteeList []siteconfig.Committee
	}{
		Leadership:    s.site.Leadership,
		Committees:    s.gate(siteconfig.SectionCommittees),
		CommitteeList: s.site.Committees,
	}))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusOK, pageAbout, s.page(r, struct {
		Leadership []siteconfig.Leader
	}{s.site.Leadership}))
}

func (s *Server) staticPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderer.render(w, http.StatusOK, name, s.page(r, nil))
	}
}

func (s *Server) handleSession3(w http.ResponseWriter, r *http.Request) {
	venue := s.gate(siteconfig.SectionVenue)
	var venueInfo *siteconfig.Venue
	if venue.Revealed && !s.site.Venue.Hidden {
		v := s.site.Venue
		venueInfo = &v
	}

	var open []registration.Option
	for _, o := range s.registration.Options() {
		if o.Open {
			open = append(open, o)
		}
	}

	s.renderer.render(w, http.StatusOK, pageSession3, s.page(r, struct {
		Committees    GatedSection
		Schedule      GatedSection
		Venue         GatedSection
		CommitteeList []siteconfig.Committee
		Days          []siteconfig.ScheduleDay
		VenueInfo     *siteconfig.Venue
		OpenForms     []registration.Option
	}{
		Committees:    s.gate(siteconfig.SectionCommittees),
		Schedule:      s.gate(siteconfig.SectionSchedule),
		Venue:         venue,
		CommitteeList: s.site.Committees,
		Days:          s.site.Schedule,
		VenueInfo:     venueInfo,
		OpenForms:     open,
	}))
}

func (s *Server) handleCommittees(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusOK, pageCommittees, s.page(r, struct {
		Gate       GatedSection
		Committees []siteconfig.Committee
	}{s.gate(siteconfig.SectionCommittees), s.site.Committees}))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusOK, pageSchedule, s.page(r, struct {
		Gate GatedSection
		Days []siteconfig.ScheduleDay
	}{s.gate(siteconfig.SectionSchedule), s.site.Schedule}))
}

// handleVenue covers the whole page with the countdown until the venue is
// revealed, when the section asks for an overlay.
func (s *Server) handleVenue(w http.ResponseWriter, r *http.Request) {
	g := s.gate(siteconfig.SectionVenue)
	rv, _ := s.site.Reveal(siteconfig.SectionVenue)

	name := pageVenue
	if rv.EnableCountdown && rv.ShowCountdownOverlay {
		overlay := reveal.NewOverlay(rv.RevealAt, reveal.WithClock(s.clock), reveal.WithSection(string(siteconfig.SectionVenue)))
		name = reveal.Choose(overlay, pageCountdown, pageVenue)
		g.Revealed = overlay.Revealed()
	} else if !g.Revealed {
		name = pageCountdown
	}

	var venue *siteconfig.Venue
	if g.Revealed && !s.site.Venue.Hidden {
		v := s.site.Venue
		venue = &v
	}
	s.renderer.render(w, http.StatusOK, name, s.page(r, struct {
		Gate  GatedSection
		Venue *siteconfig.Venue
	}{g, venue}))
}

func (s *Server) handleSecretariats(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusOK, pageSecretariats, s.page(r, struct {
		Gate       GatedSection
		Leadership []siteconfig.Leader
	}{s.gate(siteconfig.SectionSecretariats), s.site.Leadership}))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	payment, ok := s.registration.PaymentConfirmation()
	var paymentPtr *registration.Option
	if ok {
		paymentPtr = &payment
	}
	s.renderer.render(w, http.StatusOK, pageRegister, s.page(r, struct {
		Options []registration.Option
		Payment *registration.Option
	}{s.registration.Options(), paymentPtr}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, http.StatusNotFound, pageNotFound, s.page(r, nil))
}
