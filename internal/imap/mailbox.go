package imap

import (
	"iter"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"github.com/bscott/mailfetch/internal/message"
)

// Mailbox is the mailbox currently selected on a Session. It is valid
// until the session selects another mailbox or disconnects.
type Mailbox struct {
	session     *Session
	name        string
	readOnly    bool
	numMessages uint32
}

func (m *Mailbox) Name() string {
	return m.name
}

func (m *Mailbox) ReadOnly() bool {
	return m.readOnly
}

// NumMessages is the message count reported when the mailbox was selected.
func (m *Mailbox) NumMessages() uint32 {
	return m.numMessages
}

func (m *Mailbox) valid() bool {
	return m.session.state == StateConnected && m.session.selected == m
}

// FetchMessages searches the mailbox with filter (DefaultFilter when empty)
// and returns an iterator over the matches. A failed search is logged and
// produces an empty iterator.
func (m *Mailbox) FetchMessages(filter string) *MessageIter {
	if filter == "" {
		filter = DefaultFilter
	}
	it := &MessageIter{
		mailbox: m,
		logger:  m.session.logger.With().Str("mailbox", m.name).Logger(),
	}
	log := it.logger.With().Str("filter", filter).Logger()

	if !m.valid() {
		log.Warn().Err(ErrStaleMailbox).Msg("No messages found")
		return it
	}

	criteria, err := ParseFilter(filter)
	if err != nil {
		log.Warn().Err(err).Msg("No messages found")
		return it
	}

	uids, err := searchUIDs(m.session.client, criteria)
	if err != nil {
		log.Warn().Err(err).Msg("No messages found")
		return it
	}

	it.uids = uids
	log.Debug().Int("matches", len(uids)).Msg("Search complete")
	return it
}

// MessageIter yields the messages matched by one search, fetching each from
// the server only when requested. It is single-pass: once exhausted it stays
// empty, and a new FetchMessages call is needed to search again.
type MessageIter struct {
	mailbox *Mailbox
	uids    []imap.UID
	pos     int
	logger  zerolog.Logger
}

// Len is the number of messages the search matched.
func (it *MessageIter) Len() int {
	return len(it.uids)
}

// Next fetches the next message. Messages that cannot be fetched or parsed
// are logged and skipped. It returns false once no messages remain.
func (it *MessageIter) Next() (*message.Message, bool) {
	for it.pos < len(it.uids) {
		uid := it.uids[it.pos]
		it.pos++

		if !it.mailbox.valid() {
			it.logger.Warn().Err(ErrStaleMailbox).Msg("Stopping fetch")
			it.pos = len(it.uids)
			return nil, false
		}

		s := it.mailbox.session
		raw, err := fetchRaw(s.client, uid, it.mailbox.readOnly)
		if err != nil {
			it.logger.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("ERROR fetching message")
			continue
		}

		opts := s.opts.Message
		opts.UID = uint32(uid)
		msg, err := message.Parse(raw, opts)
		if err != nil {
			it.logger.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("ERROR parsing message")
			continue
		}
		return msg, true
	}
	return nil, false
}

// All adapts the iterator for range loops. Breaking out early leaves the
// remaining messages unfetched and the session usable.
func (it *MessageIter) All() iter.Seq[*message.Message] {
	return func(yield func(*message.Message) bool) {
		for {
			msg, ok := it.Next()
			if !ok || !yield(msg) {
				return
			}
		}
	}
}
