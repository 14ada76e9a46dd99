package cli

import (
	"errors"
	"fmt"

	"github.com/bscott/mailfetch/internal/imap"
	"github.com/bscott/mailfetch/internal/message"
)

var errNotConfigured = errors.New("not configured - run 'mailfetch config init' first")

// sessionOptions maps the loaded config onto imap.Options.
func (ctx *Context) sessionOptions() (imap.Options, error) {
	cfg := ctx.Config
	loc, err := cfg.Location()
	if err != nil {
		return imap.Options{}, err
	}
	return imap.Options{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		Security:           imap.Security(cfg.Server.Security),
		InsecureSkipVerify: cfg.Server.InsecureSkipVerify,
		Timeout:            cfg.Server.Timeout,
		Logger:             ctx.Logger,
		Message:            message.Options{Location: loc},
	}, nil
}

// openSession connects and logs in with the configured credentials. The
// caller must Disconnect the returned session.
func (ctx *Context) openSession() (*imap.Session, error) {
	cfg := ctx.Config
	if cfg.Server.Host == "" || cfg.Server.Username == "" {
		return nil, errNotConfigured
	}

	password, err := cfg.GetPassword()
	if err != nil {
		return nil, err
	}

	opts, err := ctx.sessionOptions()
	if err != nil {
		return nil, err
	}

	ctx.Formatter.Verbosef("Connecting to %s:%d (%s)...", cfg.Server.Host, cfg.Server.Port, cfg.Server.Security)
	session := imap.NewSession(opts)
	if !session.Connect(cfg.Server.Username, password) {
		return nil, fmt.Errorf("connection to %s failed: %w", cfg.Server.Host, session.Err())
	}
	return session, nil
}
