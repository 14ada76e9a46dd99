package imap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// DefaultFilter selects messages that have not been read yet.
const DefaultFilter = "UnSeen"

var ErrInvalidFilter = errors.New("invalid search filter")

var flagKeys = map[string]struct {
	flag imap.Flag
	not  bool
}{
	"SEEN":       {imap.FlagSeen, false},
	"UNSEEN":     {imap.FlagSeen, true},
	"ANSWERED":   {imap.FlagAnswered, false},
	"UNANSWERED": {imap.FlagAnswered, true},
	"FLAGGED":    {imap.FlagFlagged, false},
	"UNFLAGGED":  {imap.FlagFlagged, true},
	"DELETED":    {imap.FlagDeleted, false},
	"UNDELETED":  {imap.FlagDeleted, true},
	"DRAFT":      {imap.FlagDraft, false},
	"UNDRAFT":    {imap.FlagDraft, true},
}

// dateLayouts are tried in order for SINCE, BEFORE and ON arguments.
var dateLayouts = []string{"2-Jan-2006", "2006-01-02"}

// ParseFilter turns an IMAP search key expression such as "UnSeen" or
// `FROM alice SUBJECT "weekly report"` into search criteria. Keys are
// matched case-insensitively; all criteria must hold.
func ParseFilter(filter string) (*imap.SearchCriteria, error) {
	criteria := &imap.SearchCriteria{}
	parts := splitFilterParts(filter)

	for i := 0; i < len(parts); i++ {
		key := strings.ToUpper(parts[i])

		if key == "ALL" {
			continue
		}
		if fk, ok := flagKeys[key]; ok {
			if fk.not {
				criteria.NotFlag = append(criteria.NotFlag, fk.flag)
			} else {
				criteria.Flag = append(criteria.Flag, fk.flag)
			}
			continue
		}

		if i+1 >= len(parts) {
			if isKeyed(key) {
				return nil, fmt.Errorf("%w: %s needs an argument", ErrInvalidFilter, key)
			}
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, parts[i])
		}
		arg := parts[i+1]

		switch key {
		case "FROM", "TO", "CC", "BCC", "SUBJECT":
			criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
				Key:   headerKey(key),
				Value: arg,
			})
		case "BODY":
			criteria.Body = append(criteria.Body, arg)
		case "TEXT":
			criteria.Text = append(criteria.Text, arg)
		case "SINCE", "BEFORE", "ON":
			t, err := parseFilterDate(arg)
			if err != nil {
				return nil, err
			}
			switch key {
			case "SINCE":
				criteria.Since = t
			case "BEFORE":
				criteria.Before = t
			case "ON":
				criteria.Since = t
				criteria.Before = t.AddDate(0, 0, 1)
			}
		case "LARGER", "SMALLER":
			n, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %s needs a byte count, got %q", ErrInvalidFilter, key, arg)
			}
			if key == "LARGER" {
				criteria.Larger = n
			} else {
				criteria.Smaller = n
			}
		default:
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, parts[i])
		}
		i++
	}

	return criteria, nil
}

func isKeyed(key string) bool {
	switch key {
	case "FROM", "TO", "CC", "BCC", "SUBJECT", "BODY", "TEXT", "SINCE", "BEFORE", "ON", "LARGER", "SMALLER":
		return true
	}
	return false
}

// headerKey maps a search key to its header field name: "FROM" to "From".
func headerKey(key string) string {
	return key[:1] + strings.ToLower(key[1:])
}

func parseFilterDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidFilter, s)
}

// splitFilterParts splits on spaces, keeping quoted strings together and
// dropping the quotes: `SUBJECT "a b"` becomes ["SUBJECT", "a b"].
func splitFilterParts(filter string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoted := false

	for i := 0; i < len(filter); i++ {
		c := filter[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			quoted = true
		case (c == ' ' || c == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				parts = append(parts, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 || quoted {
		parts = append(parts, current.String())
	}

	return parts
}
