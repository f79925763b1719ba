package site

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/igacmun/site/go/internal/registration"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/rs/zerolog/log"
)

// RevealStatus is the API view of one gated section.
type RevealStatus struct {
	Section         siteconfig.Section `json:"section"`
	RevealAt        string             `json:"reveal_at"`
	EnableCountdown bool               `json:"enable_countdown"`
	Overlay         bool               `json:"show_countdown_overlay"`
	Countdown       reveal.Snapshot    `json:"countdown"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logWriteError(r, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

func (s *Server) revealStatus(section siteconfig.Section) (RevealStatus, error) {
	rv, err := s.site.Reveal(section)
	if err != nil {
		return RevealStatus{}, err
	}
	g := s.gate(section)
	countdown := g.Countdown
	countdown.Revealed = g.Revealed
	return RevealStatus{
		Section:         section,
		RevealAt:        rv.RevealAt,
		EnableCountdown: rv.EnableCountdown,
		Overlay:         rv.ShowCountdownOverlay,
		Countdown:       countdown,
	}, nil
}

// handleListReveals handles GET /api/reveals
func (s *Server) handleListReveals(w http.ResponseWriter, r *http.Request) {
	statuses := make([]RevealStatus, 0, len(siteconfig.Sections()))
	for _, section := range siteconfig.Sections() {
		st, err := s.revealStatus(section)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to evaluate reveals")
			return
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, r, http.StatusOK, statuses)
}

// handleGetReveal handles GET /api/reveals/{section}
func (s *Server) handleGetReveal(w http.ResponseWriter, r *http.Request) {
	section, err := siteconfig.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	st, err := s.revealStatus(section)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

// handleListRegistration handles GET /api/registration
func (s *Server) handleListRegistration(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Options             []registration.Option `json:"options"`
		PaymentConfirmation *registration.Option  `json:"payment_confirmation,omitempty"`
	}{Options: s.registration.Options()}
	if p, ok := s.registration.PaymentConfirmation(); ok {
		resp.PaymentConfirmation = &p
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleFormRedirect sends the visitor to an open form's external page.
func (s *Server) handleFormRedirect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "form")
	link, err := s.registration.Redirect(key)
	switch {
	case errors.Is(err, registration.ErrUnknownForm):
		s.handleNotFound(w, r)
		return
	case errors.Is(err, registration.ErrFormClosed):
		http.Error(w, "registration for this form is closed", http.StatusGone)
		return
	case err != nil:
		log.Error().Err(err).Str("form", key).Msg("failed to resolve form")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}
