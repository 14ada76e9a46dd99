package message

import (
	"fmt"
	"regexp"
	"time"

	"github.com/emersion/go-message/mail"
)

// LocalDateLayout is the layout of Header.LocalDate.
const LocalDateLayout = "Mon, 02 Jan 2006 15:04:05"

// Field is a decoded header value, or a marker that the named field could
// not be decoded.
type Field struct {
	Name   string
	Value  string
	Faulty bool
}

func decoded(name, value string) Field {
	return Field{Name: name, Value: value}
}

func faulty(name string) Field {
	return Field{Name: name, Faulty: true}
}

// String returns the decoded value, or "_faulty"+Name for a faulty field.
func (f Field) String() string {
	if f.Faulty {
		return "_faulty" + f.Name
	}
	return f.Value
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

type Header struct {
	Subject Field
	From    Field
	To      Field

	// RemoteDate is the Date header as the sender wrote it.
	RemoteDate string
	// LocalDate is the Date header converted to the configured location.
	// It is empty when HasLocalDate is false.
	LocalDate    string
	HasLocalDate bool
}

func newHeader(h mail.Header, loc *time.Location) Header {
	hv := Header{
		Subject:    decodeField(h, "Subject"),
		From:       decodeField(h, "From"),
		To:         decodeField(h, "To"),
		RemoteDate: h.Get("Date"),
	}
	if hv.RemoteDate != "" {
		if t, err := h.Date(); err == nil {
			hv.LocalDate = t.In(loc).Format(LocalDateLayout)
			hv.HasLocalDate = true
		}
	}
	return hv
}

// encodedWord matches an RFC 2047 encoded word: =?charset?B|Q?text?=.
var encodedWord = regexp.MustCompile(`=\?[^?\s]+\?[bBqQ]\?[^?\s]*\?=`)

// decodeField decodes RFC 2047 encoded words of one header field. A missing
// field, an unknown charset or a malformed B/Q payload yields a faulty Field.
func decodeField(h mail.Header, name string) Field {
	if !h.Has(name) {
		return faulty(name)
	}
	raw := h.Get(name)
	for _, word := range encodedWord.FindAllString(raw, -1) {
		if _, err := wordDecoder.Decode(word); err != nil {
			return faulty(name)
		}
	}
	v, err := h.Text(name)
	if err != nil {
		return faulty(name)
	}
	return decoded(name, v)
}

func (h Header) String() string {
	return fmt.Sprintf("From: %s \nSender's Date: %s \nLocal Date: %s \nTo: %s \nSubject: %s",
		h.From, h.RemoteDate, h.LocalDate, h.To, h.Subject)
}
