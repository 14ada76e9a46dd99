package imap

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "bot@example.com"
	testPassword = "secret"
)

type testServer struct {
	host      string
	port      int
	tlsConfig *tls.Config
}

// startServer runs an in-memory IMAP server with an empty INBOX and
// Archive. A nil tlsConfig serves plaintext.
func startServer(t *testing.T, tlsConfig *tls.Config) *testServer {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	require.NoError(t, user.Create("Archive", nil))
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
	port := ln.Addr().(*net.TCPAddr).Port
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return &testServer{host: "127.0.0.1", port: port, tlsConfig: tlsConfig}
}

func (ts *testServer) options() Options {
	security := SecurityInsecure
	if ts.tlsConfig != nil {
		security = SecurityTLS
	}
	return Options{
		Host:               ts.host,
		Port:               ts.port,
		Security:           security,
		InsecureSkipVerify: true,
		Timeout:            5 * time.Second,
	}
}

func (ts *testServer) connect(t *testing.T) *Session {
	t.Helper()
	s := NewSession(ts.options())
	require.True(t, s.Connect(testUser, testPassword), "connect: %v", s.Err())
	t.Cleanup(s.Disconnect)
	return s
}

// appendMessage stores raw in mailbox through a separate client connection.
func (ts *testServer) appendMessage(t *testing.T, mailbox string, raw string, flags ...imap.Flag) {
	t.Helper()

	addr := net.JoinHostPort(ts.host, strconv.Itoa(ts.port))
	var (
		c   *imapclient.Client
		err error
	)
	if ts.tlsConfig != nil {
		c, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{InsecureSkipVerify: true},
		})
	} else {
		c, err = imapclient.DialInsecure(addr, nil)
	}
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

func selfSignedTLS(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	}
}

func testMessage(subject string) string {
	return "From: Alice <alice@example.com>\n" +
		"To: Bot <bot@example.com>\n" +
		"Subject: " + subject + "\n" +
		"Date: Wed, 01 Jan 2020 10:00:00 +0000\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"Body of " + subject + "\n"
}
