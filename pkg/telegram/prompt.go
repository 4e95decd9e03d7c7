package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/term"
)

// Prompter collects login input from the user
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
	AskSecret(ctx context.Context, question string) (string, error)
}

// TerminalPrompter reads answers from in and writes questions to out
type TerminalPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	secret bool
}

// NewTerminalPrompter prompts on stdin/stderr, hiding secrets when stdin is a terminal
func NewTerminalPrompter() *TerminalPrompter {
	fd := int(os.Stdin.Fd())
	return &TerminalPrompter{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stderr,
		fd:     fd,
		secret: term.IsTerminal(fd),
	}
}

// NewPrompter reads plain answers from in
func NewPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) AskSecret(ctx context.Context, question string) (string, error) {
	if !p.secret {
		return p.Ask(ctx, question)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, question)
	password, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// authenticator drives the user login flow; sign-up is not supported
type authenticator struct {
	phone    string
	prompter Prompter
}

var _ auth.UserAuthenticator = (*authenticator)(nil)

func newAuthenticator(phone string, prompter Prompter) *authenticator {
	return &authenticator{phone: phone, prompter: prompter}
}

func (a *authenticator) Phone(ctx context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompter.Ask(ctx, "Enter Phone (INTL): ")
}

func (a *authenticator) Password(ctx context.Context) (string, error) {
	return a.prompter.AskSecret(ctx, "Enter 2FA password: ")
}

func (a *authenticator) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	return a.prompter.Ask(ctx, "Enter Code Sent: ")
}

func (a *authenticator) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a *authenticator) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("account sign up is not supported, register with an official client first")
}
