package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bscott/mailfetch/internal/config"
	"github.com/bscott/mailfetch/internal/logging"
	"github.com/bscott/mailfetch/internal/output"
)

var Version = "0.1.0"

const Description = "Fetch messages and attachments from an IMAP mailbox"

type Globals struct {
	JSON     bool   `help:"Output as JSON" name:"json"`
	HelpJSON bool   `help:"Output command help as JSON" name:"help-json"`
	Config   string `help:"Path to config file" short:"c" type:"path"`
	Verbose  bool   `help:"Verbose output" short:"v"`
	Quiet    bool   `help:"Suppress non-essential output" short:"q"`
	LogLevel string `help:"Diagnostic log level (debug, info, warn, error)" name:"log-level"`
}

type CLI struct {
	Globals

	Fetch   FetchCmd   `cmd:"" default:"withargs" help:"Fetch matching messages, print them and save attachments"`
	Mailbox MailboxCmd `cmd:"" help:"Mailbox inspection"`
	Config  ConfigCmd  `cmd:"" help:"Configuration management"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type Context struct {
	Config    *config.Config
	Formatter *output.Formatter
	Globals   *Globals
	Logger    zerolog.Logger
}

// NewContext loads the config named by --config, or the default config file
// when one exists, and falls back to defaults otherwise.
func NewContext(globals *Globals) (*Context, error) {
	return newContext(globals, os.Stderr)
}

func newContext(globals *Globals, logWriter io.Writer) (*Context, error) {
	formatter := output.New(globals.JSON, globals.Verbose, globals.Quiet)

	var cfg *config.Config
	var loadErr error

	if globals.Config != "" {
		cfg, loadErr = config.Load(globals.Config)
	} else if config.Exists() {
		cfg, loadErr = config.Load("")
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger, err := logging.New(logLevel(globals, cfg), globals.JSON, logWriter)
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		logger.Warn().Err(loadErr).Msg("Using default configuration")
	}

	return &Context{
		Config:    cfg,
		Formatter: formatter,
		Globals:   globals,
		Logger:    logger,
	}, nil
}

// logLevel picks --log-level, then -v, then log.level from the config.
func logLevel(globals *Globals, cfg *config.Config) string {
	switch {
	case globals.LogLevel != "":
		return globals.LogLevel
	case globals.Verbose:
		return "debug"
	case globals.Quiet:
		return "error"
	}
	return cfg.Log.Level
}

// FetchCmd runs the whole fetch: connect, select, search, then print each
// message and save its attachments.
type FetchCmd struct {
	Mailbox       string `help:"Mailbox to read, matched case-insensitively (default: defaults.mailbox)" short:"m"`
	Filter        string `help:"IMAP search keys, e.g. UnSeen or 'FROM alice SINCE 1-Jan-2024' (default: defaults.filter)" short:"f"`
	ReadWrite     bool   `help:"Select read-write so fetched messages are marked as seen" name:"read-write"`
	SaveDir       string `help:"Directory for attachments (default: defaults.download_dir)" name:"save-dir" type:"path"`
	NoAttachments bool   `help:"Do not save attachments" name:"no-attachments"`
	NoBody        bool   `help:"Print headers only" name:"no-body"`
	Limit         int    `help:"Stop after this many messages (0 for no limit)" short:"n"`
}

// MailboxCmd handles mailbox inspection
type MailboxCmd struct {
	List MailboxListCmd `cmd:"" help:"List all mailboxes/folders"`
	Show MailboxShowCmd `cmd:"" help:"Select a mailbox and show its message count"`
}

type MailboxListCmd struct{}

type MailboxShowCmd struct {
	Name string `arg:"" optional:"" help:"Mailbox name (default: defaults.mailbox)"`
}

// ConfigCmd handles configuration management
type ConfigCmd struct {
	Init     ConfigInitCmd     `cmd:"" help:"Interactive setup wizard"`
	Show     ConfigShowCmd     `cmd:"" help:"Display current configuration"`
	Set      ConfigSetCmd      `cmd:"" help:"Set a configuration value"`
	Validate ConfigValidateCmd `cmd:"" help:"Test the server connection and login"`
	Reset    ConfigResetCmd    `cmd:"" help:"Remove the stored password from the keyring"`
}

type ConfigInitCmd struct{}

type ConfigShowCmd struct{}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Configuration key (e.g., server.host, defaults.filter)"`
	Value string `arg:"" help:"Value to set"`
}

type ConfigValidateCmd struct{}

type ConfigResetCmd struct{}

// VersionCmd shows version information
type VersionCmd struct{}
