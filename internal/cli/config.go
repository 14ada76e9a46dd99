package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/bscott/mailfetch/internal/config"
	"github.com/bscott/mailfetch/internal/logging"
)

func (c *ConfigInitCmd) Run(ctx *Context) error {
	return c.run(ctx, os.Stdin)
}

func (c *ConfigInitCmd) run(ctx *Context, in io.Reader) error {
	w := ctx.Formatter.Writer
	fmt.Fprintln(w, "mailfetch Configuration Wizard")
	fmt.Fprintln(w, "==============================")
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)
	cfg := config.DefaultConfig()

	cfg.Server.Host = prompt(w, reader, "IMAP host", "")
	if cfg.Server.Host == "" {
		return fmt.Errorf("IMAP host is required")
	}

	portStr := prompt(w, reader, "IMAP port", strconv.Itoa(config.DefaultIMAPPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid IMAP port: %s", portStr)
	}
	cfg.Server.Port = port

	cfg.Server.Security = prompt(w, reader, "Security (tls, starttls, insecure)", config.DefaultSecurity)

	cfg.Server.Username = prompt(w, reader, "Username", "")
	if cfg.Server.Username == "" {
		return fmt.Errorf("username is required")
	}

	cfg.Defaults.DownloadDir = prompt(w, reader, "Attachment directory", os.TempDir())

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprint(w, "Password: ")
	password, err := readPassword(in, reader)
	fmt.Fprintln(w)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if err := cfg.Save(ctx.Globals.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := cfg.SetPassword(password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}

	configPath := ctx.Globals.Config
	if configPath == "" {
		configPath, _ = config.ConfigPath()
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Configuration saved to %s\n", configPath)
	fmt.Fprintln(w, "Password stored securely in system keyring.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Test your connection with: mailfetch config validate")

	ctx.Config = cfg
	return nil
}

// prompt reads one line, returning def when the line is empty.
func prompt(w io.Writer, reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		return fmt.Errorf("no configuration found - run 'mailfetch config init' first")
	}
	cfg := ctx.Config
	_, pwErr := cfg.GetPassword()

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"server": map[string]interface{}{
				"host":                 cfg.Server.Host,
				"port":                 cfg.Server.Port,
				"security":             cfg.Server.Security,
				"insecure_skip_verify": cfg.Server.InsecureSkipVerify,
				"username":             cfg.Server.Username,
				"timeout":              cfg.Server.Timeout.String(),
			},
			"defaults": map[string]interface{}{
				"mailbox":      cfg.Defaults.Mailbox,
				"filter":       cfg.Defaults.Filter,
				"read_only":    cfg.Defaults.ReadOnly,
				"download_dir": cfg.DownloadDir(),
				"timezone":     cfg.Defaults.Timezone,
			},
			"log": map[string]interface{}{
				"level": cfg.Log.Level,
			},
			"password_set": pwErr == nil,
		})
	}

	w := ctx.Formatter.Writer
	configPath := ctx.Globals.Config
	if configPath == "" {
		configPath, _ = config.ConfigPath()
	}
	fmt.Fprintf(w, "Configuration file: %s\n\n", configPath)

	fmt.Fprintln(w, "Server:")
	fmt.Fprintf(w, "  Host:     %s\n", cfg.Server.Host)
	fmt.Fprintf(w, "  Port:     %d\n", cfg.Server.Port)
	fmt.Fprintf(w, "  Security: %s\n", cfg.Server.Security)
	if cfg.Server.InsecureSkipVerify {
		fmt.Fprintln(w, "  Certificate verification: disabled")
	}
	fmt.Fprintf(w, "  Username: %s\n", cfg.Server.Username)
	fmt.Fprintf(w, "  Timeout:  %s\n", cfg.Server.Timeout)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Defaults:")
	fmt.Fprintf(w, "  Mailbox:      %s\n", cfg.Defaults.Mailbox)
	fmt.Fprintf(w, "  Filter:       %s\n", cfg.Defaults.Filter)
	fmt.Fprintf(w, "  Read-only:    %t\n", cfg.Defaults.ReadOnly)
	fmt.Fprintf(w, "  Download dir: %s\n", cfg.DownloadDir())
	if cfg.Defaults.Timezone != "" {
		fmt.Fprintf(w, "  Timezone:     %s\n", cfg.Defaults.Timezone)
	}

	fmt.Fprintln(w)
	if pwErr != nil {
		fmt.Fprintln(w, "Password: not set (run 'mailfetch config init' to set)")
	} else {
		fmt.Fprintln(w, "Password: ********** (stored in keyring)")
	}

	return nil
}

// configSetters maps "section.key" to a function applying the raw value.
var configSetters = map[string]func(cfg *config.Config, v string) error{
	"server.host":     func(cfg *config.Config, v string) error { cfg.Server.Host = v; return nil },
	"server.username": func(cfg *config.Config, v string) error { cfg.Server.Username = v; return nil },
	"server.security": func(cfg *config.Config, v string) error { cfg.Server.Security = v; return nil },
	"server.port": func(cfg *config.Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port value: %s", v)
		}
		cfg.Server.Port = port
		return nil
	},
	"server.insecure_skip_verify": func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", v)
		}
		cfg.Server.InsecureSkipVerify = b
		return nil
	},
	"server.timeout": func(cfg *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration value: %s", v)
		}
		cfg.Server.Timeout = d
		return nil
	},
	"defaults.mailbox":      func(cfg *config.Config, v string) error { cfg.Defaults.Mailbox = v; return nil },
	"defaults.filter":       func(cfg *config.Config, v string) error { cfg.Defaults.Filter = v; return nil },
	"defaults.download_dir": func(cfg *config.Config, v string) error { cfg.Defaults.DownloadDir = v; return nil },
	"defaults.timezone":     func(cfg *config.Config, v string) error { cfg.Defaults.Timezone = v; return nil },
	"defaults.read_only": func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", v)
		}
		cfg.Defaults.ReadOnly = b
		return nil
	},
	"log.level": func(cfg *config.Config, v string) error {
		if _, err := logging.ParseLevel(v); err != nil {
			return err
		}
		cfg.Log.Level = v
		return nil
	},
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *ConfigSetCmd) Run(ctx *Context) error {
	if ctx.Config == nil {
		ctx.Config = config.DefaultConfig()
	}

	set, ok := configSetters[c.Key]
	if !ok {
		return fmt.Errorf("unknown key %q (use one of %s)", c.Key, strings.Join(configKeys(), ", "))
	}
	if err := set(ctx.Config, c.Value); err != nil {
		return err
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}

	if err := ctx.Config.Save(ctx.Globals.Config); err != nil {
		return err
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Set %s = %s", c.Key, c.Value))
	return nil
}

func (c *ConfigValidateCmd) Run(ctx *Context) error {
	session, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	mailboxes, err := session.ListMailboxes()
	if err != nil {
		return fmt.Errorf("connected but cannot list mailboxes: %w", err)
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Connected to %s as %s (%d mailboxes)",
		ctx.Config.Server.Host, ctx.Config.Server.Username, len(mailboxes)))
	return nil
}

func (c *ConfigResetCmd) Run(ctx *Context) error {
	username := ctx.Config.Server.Username
	if username == "" {
		return errNotConfigured
	}
	if err := config.DeletePassword(username); err != nil {
		return err
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("Removed stored password for %s", username))
	return nil
}
