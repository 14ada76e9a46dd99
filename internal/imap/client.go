package imap

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

func dial(addr string, opts Options) (*imapclient.Client, error) {
	dialer := &net.Dialer{Timeout: opts.Timeout}
	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         opts.Host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
	}

	switch opts.Security {
	case SecurityTLS, "":
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, options.TLSConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
		return imapclient.New(conn, options), nil
	case SecurityStartTLS:
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
		client, err := imapclient.NewStartTLS(conn, options)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
		return client, nil
	case SecurityInsecure:
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
		return imapclient.New(conn, options), nil
	}
	return nil, fmt.Errorf("unknown security mode %q", opts.Security)
}

func listMailboxes(client *imapclient.Client) ([]MailboxInfo, error) {
	mailboxes, err := client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	result := make([]MailboxInfo, 0, len(mailboxes))
	for _, mb := range mailboxes {
		info := MailboxInfo{
			Name:       mb.Mailbox,
			Attributes: make([]string, 0, len(mb.Attrs)),
		}
		if mb.Delim != 0 {
			info.Delimiter = string(mb.Delim)
		}
		for _, attr := range mb.Attrs {
			info.Attributes = append(info.Attributes, string(attr))
		}
		result = append(result, info)
	}
	return result, nil
}

func searchUIDs(client *imapclient.Client, criteria *imap.SearchCriteria) ([]imap.UID, error) {
	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return data.AllUIDs(), nil
}

// fetchRaw fetches the full RFC 5322 source of one message. With peek set
// the server leaves the \Seen flag alone.
func fetchRaw(client *imapclient.Client, uid imap.UID, peek bool) ([]byte, error) {
	section := &imap.FetchItemBodySection{Peek: peek}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uid), fetchOptions)
	msg := fetchCmd.Next()
	if msg == nil {
		if err := fetchCmd.Close(); err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	closeErr := fetchCmd.Close()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("fetch failed: %w", closeErr)
	}

	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}
	return raw, nil
}
