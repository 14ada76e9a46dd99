package message

import (
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const (
	// NoAttachment is returned by SaveAttachments when the message has no
	// attachment-eligible part.
	NoAttachment = "No attachment found."

	// FaultyFilename replaces a missing or unusable attachment filename.
	FaultyFilename = "_faultyName"
)

var filenameReplacer = strings.NewReplacer(
	"/", "", "\\", "", ":", "", "*", "", "?", "", "=", "", "\"", "",
	"<", "", ">", "", "|", "", "+", "", "\r", "", "\n", "", "\t", "", "`", "",
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// SanitizeFilename strips path separators and characters that are invalid
// on common filesystems. The result is always a single path element.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(name)
	if name == "" || name == "." || name == ".." {
		return FaultyFilename
	}
	return name
}

// isAttachment reports whether e is a leaf part carrying a
// Content-Disposition header.
func isAttachment(e *gomessage.Entity) bool {
	if strings.HasPrefix(mediaType(e), "multipart/") {
		return false
	}
	return e.Header.Get("Content-Disposition") != ""
}

func attachmentFilename(e *gomessage.Entity) string {
	h := mail.AttachmentHeader{Header: e.Header}
	name, err := h.Filename()
	if name == "" {
		return FaultyFilename
	}
	if err == nil {
		if dec, derr := wordDecoder.DecodeHeader(name); derr == nil {
			name = dec
		}
	}
	return name
}

// SaveAttachments writes every attachment of the message into dir and
// returns the path of the last one processed, or NoAttachment. Files that
// already exist are left untouched. Parts whose content cannot be decoded
// are skipped.
func (m *Message) SaveAttachments(dir string) string {
	path := NoAttachment
	err := m.walkPayloads(func(e *gomessage.Entity, partErr error) error {
		if !isAttachment(e) {
			return nil
		}

		name := SanitizeFilename(attachmentFilename(e))
		path = filepath.Join(dir, name)
		log := m.logger.With().Str("path", path).Logger()

		if _, err := os.Stat(path); err == nil {
			log.Debug().Msg("Attachment already saved, skipping")
			return nil
		}

		if gomessage.IsUnknownEncoding(partErr) {
			log.Debug().Err(partErr).Msg("Cannot decode attachment, skipping")
			return nil
		}
		data, err := readBody(e)
		if err != nil {
			log.Debug().Err(err).Msg("Cannot decode attachment, skipping")
			return nil
		}

		if err := writeExclusive(path, data); err != nil {
			if errors.Is(err, fs.ErrExist) {
				log.Debug().Msg("Attachment already saved, skipping")
			} else {
				log.Warn().Err(err).Msg("Failed to write attachment")
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Debug().Err(err).Msg("Message structure is malformed")
	}
	return path
}

// writeExclusive creates path and writes data to it. It never replaces an
// existing file, and removes what it created if the write fails.
func writeExclusive(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	_, err = f.Write(data)
	return err
}

// Attachments lists the attachment-eligible parts without saving them.
func (m *Message) Attachments() []AttachmentInfo {
	var result []AttachmentInfo
	m.walkPayloads(func(e *gomessage.Entity, partErr error) error {
		if !isAttachment(e) {
			return nil
		}
		info := AttachmentInfo{
			Filename:    SanitizeFilename(attachmentFilename(e)),
			ContentType: mediaType(e),
			Size:        -1,
		}
		if partErr == nil {
			if data, err := readBody(e); err == nil {
				info.Size = int64(len(data))
			}
		}
		result = append(result, info)
		return nil
	})
	return result
}
