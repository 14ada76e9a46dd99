// Package message decodes raw RFC 5322 messages fetched from a mailbox:
// header fields, the plain-text body and attachments.
package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/rs/zerolog"
)

// errStopWalk ends a part walk early once the wanted part was found.
var errStopWalk = errors.New("stop walk")

type Options struct {
	// Location is the zone LocalDate is converted to. Nil means time.Local.
	Location *time.Location
	Logger   zerolog.Logger
	// UID is the server identifier the message was fetched under.
	UID uint32
}

// Message is one raw fetched message. It is immutable after Parse; saving
// attachments only touches the filesystem.
type Message struct {
	uid    uint32
	raw    []byte
	header Header
	logger zerolog.Logger
}

// Parse reads the top-level header of raw and computes the decoded header
// view. Only a header that cannot be read at all is an error.
func Parse(raw []byte, opts Options) (*Message, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Message{
		uid:    opts.UID,
		raw:    raw,
		header: newHeader(mail.Header{Header: gomessage.Header{Header: h}}, loc),
		logger: opts.Logger.With().Str("module", "message").Logger(),
	}, nil
}

// UID returns the server identifier, or 0 when the message was not fetched.
func (m *Message) UID() uint32 {
	return m.uid
}

func (m *Message) Header() Header {
	return m.header
}

// Raw returns the message exactly as fetched.
func (m *Message) Raw() []byte {
	return m.raw
}

// walk visits every entity of the MIME tree depth-first, with bodies
// decoded to UTF-8. Entities whose charset or transfer encoding is unknown
// are passed through with their raw body and the error; the walk stops on
// structural errors.
func (m *Message) walk(fn func(e *gomessage.Entity, err error) error) error {
	root, readErr := gomessage.Read(bytes.NewReader(m.raw))
	if root == nil || (readErr != nil && !isRecoverable(readErr)) {
		return readErr
	}
	walkErr := root.Walk(func(_ []int, e *gomessage.Entity, err error) error {
		if e == root && err == nil {
			err = readErr
		}
		if err != nil && !isRecoverable(err) {
			return err
		}
		return fn(e, err)
	})
	if errors.Is(walkErr, errStopWalk) {
		return nil
	}
	return walkErr
}

// walkPayloads is walk for attachments: leaf bodies are only
// transfer-decoded, so their bytes are the attached file unchanged by any
// charset parameter.
func (m *Message) walkPayloads(fn func(e *gomessage.Entity, err error) error) error {
	br := bufio.NewReader(bytes.NewReader(m.raw))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		return err
	}
	err = walkPayload(gomessage.Header{Header: h}, br, fn)
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

func walkPayload(h gomessage.Header, body io.Reader, fn func(e *gomessage.Entity, err error) error) error {
	t, params, _ := h.ContentType()
	if !strings.HasPrefix(t, "multipart/") {
		e, err := gomessage.New(payloadHeader(h), body)
		if e == nil || (err != nil && !isRecoverable(err)) {
			return err
		}
		return fn(e, err)
	}

	e, err := gomessage.New(h, body)
	if e == nil || (err != nil && !isRecoverable(err)) {
		return err
	}
	if err := fn(e, err); err != nil {
		return err
	}

	mr := textproto.NewMultipartReader(e.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := walkPayload(gomessage.Header{Header: p.Header}, p, fn); err != nil {
			return err
		}
	}
}

// payloadHeader returns h without the Content-Type charset parameter.
func payloadHeader(h gomessage.Header) gomessage.Header {
	t, params, err := h.ContentType()
	if err != nil {
		return h
	}
	if _, ok := params["charset"]; !ok {
		return h
	}
	c := gomessage.Header{Header: h.Header.Copy()}
	delete(params, "charset")
	c.SetContentType(t, params)
	return c
}

func isRecoverable(err error) bool {
	return gomessage.IsUnknownCharset(err) || gomessage.IsUnknownEncoding(err)
}

func (m *Message) String() string {
	body, _ := m.ExtractBody()
	return m.header.String() + "\n" + body
}

func readBody(e *gomessage.Entity) ([]byte, error) {
	if e.Body == nil {
		return nil, nil
	}
	return io.ReadAll(e.Body)
}
