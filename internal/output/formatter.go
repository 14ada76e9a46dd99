package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"github.com/bscott/mailfetch/internal/message"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Red   = "\033[31m"
	Green = "\033[32m"
	Gray  = "\033[90m"
)

type Formatter struct {
	JSON      bool
	Verbose   bool
	Quiet     bool
	NoColor   bool
	Writer    io.Writer
	ErrWriter io.Writer
}

func New(jsonOutput, verbose, quiet bool) *Formatter {
	return &Formatter{
		JSON:      jsonOutput,
		Verbose:   verbose,
		Quiet:     quiet,
		NoColor:   !isatty.IsTerminal(os.Stdout.Fd()),
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// Color wraps text in ANSI color codes if colors are enabled
func (f *Formatter) Color(color, text string) string {
	if f.NoColor || f.JSON {
		return text
	}
	return color + text + Reset
}

func (f *Formatter) Bold(text string) string {
	return f.Color(Bold, text)
}

func (f *Formatter) Print(v interface{}) error {
	if f.JSON {
		return f.PrintJSON(v)
	}
	fmt.Fprintln(f.Writer, v)
	return nil
}

func (f *Formatter) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *Formatter) PrintError(err error) {
	if f.JSON {
		f.PrintJSON(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	fmt.Fprintf(f.ErrWriter, "%s %s\n", f.Color(Red, "Error:"), err)
}

func (f *Formatter) PrintSuccess(message string) {
	if f.Quiet {
		return
	}
	if f.JSON {
		f.PrintJSON(map[string]interface{}{
			"success": true,
			"message": message,
		})
		return
	}
	fmt.Fprintln(f.Writer, f.Color(Green, "✓")+" "+message)
}

func (f *Formatter) Verbosef(format string, args ...interface{}) {
	if f.Verbose && !f.Quiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintln(f.Writer, f.Color(Gray, msg))
	}
}

// MessageView is the JSON shape of one fetched message.
type MessageView struct {
	UID         uint32                   `json:"uid"`
	From        message.Field            `json:"from"`
	To          message.Field            `json:"to"`
	Subject     message.Field            `json:"subject"`
	Date        string                   `json:"date,omitempty"`
	LocalDate   string                   `json:"local_date,omitempty"`
	Body        *string                  `json:"body,omitempty"`
	Attachments []message.AttachmentInfo `json:"attachments,omitempty"`
	SavedTo     string                   `json:"saved_to,omitempty"`
}

func NewMessageView(msg *message.Message, withBody bool) MessageView {
	h := msg.Header()
	v := MessageView{
		UID:       msg.UID(),
		From:      h.From,
		To:        h.To,
		Subject:   h.Subject,
		Date:      h.RemoteDate,
		LocalDate: h.LocalDate,
	}
	if withBody {
		if body, ok := msg.ExtractBody(); ok {
			v.Body = &body
		}
	}
	return v
}

// PrintMessage writes the header block, the body when present, and where
// attachments went.
func (f *Formatter) PrintMessage(v MessageView) error {
	if f.JSON {
		return f.PrintJSON(v)
	}

	fmt.Fprintf(f.Writer, "%s %s\n", f.Bold("From:"), v.From)
	fmt.Fprintf(f.Writer, "%s %s\n", f.Bold("Sender's Date:"), v.Date)
	fmt.Fprintf(f.Writer, "%s %s\n", f.Bold("Local Date:"), v.LocalDate)
	fmt.Fprintf(f.Writer, "%s %s\n", f.Bold("To:"), v.To)
	fmt.Fprintf(f.Writer, "%s %s\n", f.Bold("Subject:"), v.Subject)

	if v.Body != nil {
		fmt.Fprintln(f.Writer)
		fmt.Fprintln(f.Writer, strings.TrimRight(*v.Body, "\r\n"))
	}

	if v.SavedTo != "" {
		fmt.Fprintln(f.Writer)
		fmt.Fprintf(f.Writer, "%s %s\n", f.Color(Gray, "Attachments:"), v.SavedTo)
	}
	fmt.Fprintln(f.Writer, f.Color(Gray, strings.Repeat("-", 40)))
	return nil
}

type TableWriter struct {
	w *tabwriter.Writer
}

func (f *Formatter) NewTable(headers ...string) *TableWriter {
	tw := &TableWriter{
		w: tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0),
	}
	if len(headers) > 0 {
		coloredHeaders := make([]string, len(headers))
		for i, h := range headers {
			coloredHeaders[i] = f.Bold(h)
		}
		fmt.Fprintln(tw.w, strings.Join(coloredHeaders, "\t"))
	}
	return tw
}

func (t *TableWriter) AddRow(values ...string) {
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *TableWriter) Flush() {
	t.w.Flush()
}
