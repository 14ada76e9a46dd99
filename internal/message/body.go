package message

import (
	gomessage "github.com/emersion/go-message"
)

// ExtractBody returns the content of the first text/plain leaf part, in
// depth-first order. Later text/plain parts are ignored.
func (m *Message) ExtractBody() (string, bool) {
	var (
		body  string
		found bool
	)
	err := m.walk(func(e *gomessage.Entity, _ error) error {
		if mediaType(e) != "text/plain" {
			return nil
		}
		data, err := readBody(e)
		if err != nil {
			m.logger.Debug().Err(err).Msg("Failed to read text/plain part")
			return nil
		}
		body, found = string(data), true
		return errStopWalk
	})
	if err != nil {
		m.logger.Debug().Err(err).Msg("Message structure is malformed")
	}
	return body, found
}

// mediaType returns the lower-cased media type of e. A part without a
// Content-Type header is text/plain.
func mediaType(e *gomessage.Entity) string {
	if e.Header.Get("Content-Type") == "" {
		return "text/plain"
	}
	t, _, err := e.Header.ContentType()
	if err != nil {
		return ""
	}
	return t
}
