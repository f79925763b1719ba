package registration

import (
	"testing"
	"time"

	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	cfg, err := siteconfig.Default()
	require.NoError(t, err)
	return NewService(cfg, clockwork.NewFakeClockAt(now))
}

func keys(options []Option) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		out = append(out, o.Key)
	}
	return out
}

func TestOptions_EnabledFirstStable(t *testing.T) {
	svc := newTestService(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))

	options := svc.Options()

	assert.Equal(t,
		[]string{"campusAmbassadors", "executiveBoard", "earlyBird", "regular", "late"},
		keys(options))
	assert.True(t, options[0].Open)
	assert.Equal(t, "https://forms.gle/PW95WFfWVVu2vPMD6", options[0].Link)
	assert.False(t, options[2].Open)
	assert.Empty(t, options[2].Link)
}

func TestOptions_DeadlineCloses(t *testing.T) {
	svc := newTestService(t, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC))

	byKey := map[string]Option{}
	for _, o := range svc.Options() {
		byKey[o.Key] = o
	}

	assert.True(t, byKey["campusAmbassadors"].Open)
	assert.True(t, byKey["executiveBoard"].Enabled)
	assert.False(t, byKey["executiveBoard"].Open, "deadline 2025-11-15 has passed")
}

func TestOptions_MalformedDeadlineStaysOpen(t *testing.T) {
	cfg := &siteconfig.Config{
		RegistrationTypes: []siteconfig.RegistrationType{{Key: "regular", Icon: "CheckCircle"}, {Key: "ghost"}},
		Forms: map[string]siteconfig.Form{
			"regular": {Enabled: true, Link: "https://forms.example/regular", Deadline: "someday"},
		},
	}
	svc := NewService(cfg, clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))

	options := svc.Options()

	require.Len(t, options, 1)
	assert.True(t, options[0].Open)
}

func TestRedirect(t *testing.T) {
	svc := newTestService(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))

	link, err := svc.Redirect("executiveBoard")
	require.NoError(t, err)
	assert.Equal(t, "https://forms.gle/Jieo1f4TMaTnkzgeA", link)

	_, err = svc.Redirect("regular")
	assert.ErrorIs(t, err, ErrFormClosed)

	_, err = svc.Redirect("vip")
	assert.ErrorIs(t, err, ErrUnknownForm)
}

func TestPaymentConfirmation(t *testing.T) {
	svc := newTestService(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))

	opt, ok := svc.PaymentConfirmation()
	require.True(t, ok)
	assert.True(t, opt.Open)
	assert.Equal(t, "Payment Confirmation", opt.Title)

	late := newTestService(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	opt, ok = late.PaymentConfirmation()
	require.True(t, ok)
	assert.False(t, opt.Open)
}
