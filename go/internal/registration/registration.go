// Package registration lists the conference registration forms and decides
// which of them currently accept submissions. Forms themselves live on an
// external provider; this package only resolves their links.
package registration

import (
	"errors"
	"fmt"
	"sort"

	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
)

// PaymentConfirmationKey is the form used to submit payment proof.
const PaymentConfirmationKey = "paymentConfirmation"

var (
	ErrUnknownForm = errors.New("unknown registration form")
	ErrFormClosed  = errors.New("registration form is closed")
)

// Option is a registration type joined with its form.
type Option struct {
	Key         string `json:"key"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
	Deadline    string `json:"deadline"`
	Enabled     bool   `json:"enabled"`
	Open        bool   `json:"open"`
}

// Service answers registration questions against a site config and a clock.
type Service struct {
	cfg   *siteconfig.Config
	clock clockwork.Clock
}

func NewService(cfg *siteconfig.Config, clock clockwork.Clock) *Service {
	return &Service{cfg: cfg, clock: clock}
}

// Options returns every registration type that has a form, enabled forms
// first and otherwise in configured order.
func (s *Service) Options() []Option {
	options := make([]Option, 0, len(s.cfg.RegistrationTypes))
	for _, rt := range s.cfg.RegistrationTypes {
		form, ok := s.cfg.Form(rt.Key)
		if !ok {
			continue
		}
		options = append(options, s.option(rt.Key, rt.Icon, form))
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Enabled && !options[j].Enabled
	})
	return options
}

// PaymentConfirmation returns the payment confirmation form, if configured.
func (s *Service) PaymentConfirmation() (Option, bool) {
	form, ok := s.cfg.Form(PaymentConfirmationKey)
	if !ok {
		return Option{}, false
	}
	return s.option(PaymentConfirmationKey, "CreditCard", form), true
}

// Redirect returns the external link for an open form.
func (s *Service) Redirect(key string) (string, error) {
	form, ok := s.cfg.Form(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownForm, key)
	}
	opt := s.option(key, "", form)
	if !opt.Open {
		return "", fmt.Errorf("%w: %q", ErrFormClosed, key)
	}
	return form.Link, nil
}

// option builds the view of a form. An enabled form stays open until its
// deadline; a missing or malformed deadline never closes it.
func (s *Service) option(key, icon string, form siteconfig.Form) Option {
	open := form.Enabled && form.Link != ""
	if open && form.Deadline != "" {
		if _, err := reveal.ParseTarget(form.Deadline); err == nil {
			open = !reveal.Evaluate(form.Deadline, s.clock.Now()).Revealed
		}
	}

	opt := Option{
		Key:         key,
		Icon:        icon,
		Title:       form.Title,
		Description: form.Description,
		Deadline:    form.Deadline,
		Enabled:     form.Enabled,
		Open:        open,
	}
	if open {
		opt.Link = form.Link
	}
	return opt
}
