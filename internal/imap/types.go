package imap

type MailboxInfo struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter"`
	Attributes []string `json:"attributes"`
}

type State int

const (
	StateNew State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Security selects how the connection to the server is secured.
type Security string

const (
	SecurityTLS      Security = "tls"
	SecurityStartTLS Security = "starttls"
	// SecurityInsecure sends credentials in the clear. Only for local
	// bridges and tests.
	SecurityInsecure Security = "insecure"
)
