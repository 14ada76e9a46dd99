package cli

import (
	"bytes"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bscott/mailfetch/internal/config"
	"github.com/bscott/mailfetch/internal/output"
)

const (
	testUser     = "bot@example.com"
	testPassword = "secret"
)

// startServer runs a plaintext in-memory IMAP server with INBOX and
// Reports, and returns its address.
func startServer(t *testing.T) string {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	require.NoError(t, user.Create("Reports", nil))
	memServer.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return ln.Addr().String()
}

func appendMessage(t *testing.T, addr, mailbox, raw string, flags ...imap.Flag) {
	t.Helper()

	c, err := imapclient.DialInsecure(addr, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Login(testUser, testPassword).Wait())

	data := []byte(strings.ReplaceAll(raw, "\n", "\r\n"))
	cmd := c.Append(mailbox, int64(len(data)), &imap.AppendOptions{Flags: flags})
	_, err = cmd.Write(data)
	require.NoError(t, err)
	require.NoError(t, cmd.Close())
	_, err = cmd.Wait()
	require.NoError(t, err)

	require.NoError(t, c.Logout().Wait())
}

// serverContext returns a Context pointed at addr with the password in the
// environment, attachments going to a temp dir, and stdout captured.
func serverContext(t *testing.T, addr string, jsonOutput bool) (*Context, *bytes.Buffer) {
	t.Helper()
	t.Setenv(config.PasswordEnv, testPassword)

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Server.Host = host
	cfg.Server.Port = port
	cfg.Server.Security = "insecure"
	cfg.Server.Username = testUser
	cfg.Server.Timeout = 5 * time.Second
	cfg.Defaults.DownloadDir = t.TempDir()
	cfg.Defaults.Timezone = "UTC"

	var buf bytes.Buffer
	formatter := output.New(jsonOutput, false, false)
	formatter.NoColor = true
	formatter.Writer = &buf
	formatter.ErrWriter = &buf

	return &Context{
		Config:    cfg,
		Formatter: formatter,
		Globals:   &Globals{JSON: jsonOutput, Config: filepath.Join(t.TempDir(), "config.yaml")},
		Logger:    zerolog.Nop(),
	}, &buf
}

func plainMessage(subject, from string) string {
	return "From: " + from + "\n" +
		"To: Bot <bot@example.com>\n" +
		"Subject: " + subject + "\n" +
		"Date: Wed, 01 Jan 2020 10:00:00 +0000\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"Body of " + subject + "\n"
}

const reportMessage = `From: Reports <reports@example.com>
To: Bot <bot@example.com>
Subject: Daily export
Date: Wed, 01 Jan 2020 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain

Export attached.
--b
Content-Type: text/csv
Content-Disposition: attachment; filename="export.csv"
Content-Transfer-Encoding: base64

aWQsdG90YWwKMSw0Mg==
--b--
`
