package telegram

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	errs "chatdump/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorPrompts(t *testing.T) {
	var out bytes.Buffer
	a := newAuthenticator("", NewPrompter(strings.NewReader("+15550100\n 12345 \nhunter2"), &out))
	ctx := context.Background()

	phone, err := a.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", phone)

	code, err := a.Code(ctx, &tg.AuthSentCode{})
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	password, err := a.Password(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	assert.Contains(t, out.String(), "Enter Phone (INTL): ")
	assert.Contains(t, out.String(), "Enter Code Sent: ")
}

func TestAuthenticatorConfiguredPhone(t *testing.T) {
	var out bytes.Buffer
	a := newAuthenticator("+15550199", NewPrompter(strings.NewReader(""), &out))

	phone, err := a.Phone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+15550199", phone)
	assert.Empty(t, out.String())
}

func TestAuthenticatorRefusesSignUp(t *testing.T) {
	a := newAuthenticator("", NewPrompter(strings.NewReader(""), &bytes.Buffer{}))

	_, err := a.SignUp(context.Background())
	assert.Error(t, err)

	var signUp *auth.SignUpRequired
	assert.ErrorAs(t, a.AcceptTermsOfService(context.Background(), tg.HelpTermsOfService{}), &signUp)
}

func TestPrompterEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Ask(context.Background(), "? ")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewPrompter(strings.NewReader("x\n"), &bytes.Buffer{}).Ask(ctx, "? ")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		subject string
	}{
		{name: "valid", opts: Options{APIID: 1, APIHash: "h", SessionPath: "/tmp/s"}},
		{name: "missing id", opts: Options{APIHash: "h", SessionPath: "/tmp/s"}, subject: "api_id"},
		{name: "missing hash", opts: Options{APIID: 1, SessionPath: "/tmp/s"}, subject: "api_hash"},
		{name: "missing session", opts: Options{APIID: 1, APIHash: "h"}, subject: "session_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.subject == "" {
				assert.NoError(t, err)
				return
			}
			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errs.KindValidation, e.Kind)
			assert.Equal(t, tt.subject, e.Subject)
		})
	}
}

func TestOpenRejectsInvalidOptions(t *testing.T) {
	called := false
	err := Open(context.Background(), Options{}, func(ctx context.Context, src *Source) error {
		called = true
		return nil
	})
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.False(t, called)
}
