package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
)

// Options configures an MTProto session
type Options struct {
	APIID       int
	APIHash     string
	SessionPath string
	// Phone skips the phone prompt when set
	Phone string
	// Prompter asks for login details; defaults to the terminal
	Prompter Prompter
	Logger   logger.Logger
}

// Validate checks the application credentials
func (o Options) Validate() error {
	if o.APIID <= 0 {
		return errs.Validation("api_id", "telegram api_id is required")
	}
	if o.APIHash == "" {
		return errs.Validation("api_hash", "telegram api_hash is required")
	}
	if o.SessionPath == "" {
		return errs.Validation("session_path", "telegram session path is required")
	}
	return nil
}

// Open connects, logs in when the session is not yet authorized and
// calls fn with a Source bound to the live connection. The connection is
// closed when fn returns.
func Open(ctx context.Context, opts Options, fn func(ctx context.Context, src *Source) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("platform", Platform)

	if err := os.MkdirAll(filepath.Dir(opts.SessionPath), 0o700); err != nil {
		return errs.Persistence(opts.SessionPath, err)
	}

	client := telegram.NewClient(opts.APIID, opts.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: opts.SessionPath},
	})

	return client.Run(ctx, func(ctx context.Context) error {
		prompter := opts.Prompter
		if prompter == nil {
			prompter = NewTerminalPrompter()
		}

		flow := auth.NewFlow(newAuthenticator(opts.Phone, prompter), auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("telegram login: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("telegram session: %w", err)
		}
		log.InfoWithFields("Telegram session ready", map[string]interface{}{
			"user_id":  self.ID,
			"username": self.Username,
			"session":  opts.SessionPath,
		})

		return fn(ctx, NewSource(client.API(), self.ID))
	})
}
