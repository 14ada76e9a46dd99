// Package imap wraps an IMAP client connection: one authenticated Session,
// at most one selected Mailbox, and lazy message iteration over a search.
//
// A Session and its Mailbox are not safe for concurrent use.
package imap

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/bscott/mailfetch/internal/message"
)

const DefaultPort = 993

var (
	ErrNotConnected = errors.New("not connected")
	ErrStaleMailbox = errors.New("mailbox is no longer selected")
)

type Options struct {
	Host               string
	Port               int
	Security           Security
	InsecureSkipVerify bool
	// Timeout bounds the TCP and TLS handshake. Zero means no timeout.
	Timeout time.Duration
	Logger  zerolog.Logger
	// Message is passed to message.Parse for every fetched message. Its
	// Logger is replaced by Logger.
	Message message.Options
}

type Session struct {
	opts     Options
	addr     string
	client   *imapclient.Client
	state    State
	err      error
	selected *Mailbox
	logger   zerolog.Logger
}

func NewSession(opts Options) *Session {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	opts.Message.Logger = opts.Logger
	return &Session{
		opts:   opts,
		addr:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		state:  StateNew,
		logger: opts.Logger.With().Str("module", "imap").Str("server", opts.Host).Logger(),
	}
}

// Connect dials the server and logs in. It reports failure as false; the
// cause is available from Err. A session that is already connected is
// disconnected first.
func (s *Session) Connect(username, password string) bool {
	if s.client != nil {
		s.Disconnect()
	}

	client, err := dial(s.addr, s.opts)
	if err != nil {
		s.fail(err)
		return false
	}

	if err := client.Login(username, password).Wait(); err != nil {
		client.Close()
		s.fail(fmt.Errorf("IMAP login failed: %w", err))
		return false
	}

	s.client = client
	s.state = StateConnected
	s.err = nil
	s.logger.Debug().Str("user", username).Msg("Connected")
	return true
}

func (s *Session) fail(err error) {
	s.err = err
	s.logger.Debug().Err(err).Msg("Connect failed")
}

// Err returns the most recent connection failure.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) ListMailboxes() ([]MailboxInfo, error) {
	if s.state != StateConnected {
		return nil, ErrNotConnected
	}
	return listMailboxes(s.client)
}

// SelectMailbox finds the listed mailbox whose name contains name, ignoring
// case, and selects it. An exact match wins over a substring match. With
// readOnly the mailbox is opened with EXAMINE and fetching leaves \Seen
// untouched. Any failure is logged and yields nil.
//
// Selecting replaces the previously returned Mailbox, which stops working.
func (s *Session) SelectMailbox(name string, readOnly bool) *Mailbox {
	log := s.logger.With().Str("mailbox", name).Logger()

	mailboxes, err := s.ListMailboxes()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot list mailboxes")
		return nil
	}

	target, ok := matchMailbox(mailboxes, name)
	if !ok {
		log.Warn().Msg("Requested mailbox does not exist")
		return nil
	}

	s.selected = nil
	data, err := s.client.Select(target, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		log.Warn().Err(err).Str("selected", target).Msg("Cannot access requested mailbox")
		return nil
	}

	s.selected = &Mailbox{
		session:     s,
		name:        target,
		readOnly:    readOnly,
		numMessages: data.NumMessages,
	}
	log.Debug().Str("selected", target).Uint32("messages", data.NumMessages).Msg("Mailbox selected")
	return s.selected
}

func matchMailbox(mailboxes []MailboxInfo, name string) (string, bool) {
	want := strings.ToLower(name)
	for _, mb := range mailboxes {
		if strings.ToLower(mb.Name) == want {
			return mb.Name, true
		}
	}
	for _, mb := range mailboxes {
		if strings.Contains(strings.ToLower(mb.Name), want) {
			return mb.Name, true
		}
	}
	return "", false
}

// Disconnect logs out and closes the connection. Errors are ignored. It is
// safe to call on a session that never connected, and more than once.
func (s *Session) Disconnect() {
	s.selected = nil
	if s.client == nil {
		s.state = StateClosed
		return
	}

	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug().Err(err).Msg("Logout failed")
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Close failed")
	}
	s.client = nil
	s.state = StateClosed
}
