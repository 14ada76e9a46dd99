package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bscott/mailfetch/internal/message"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		json    bool
		verbose bool
		quiet   bool
	}{
		{"default", false, false, false},
		{"json mode", true, false, false},
		{"verbose mode", false, true, false},
		{"quiet mode", false, false, true},
		{"all options", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.json, tt.verbose, tt.quiet)
			if f == nil {
				t.Fatal("expected non-nil formatter")
			}
			if f.JSON != tt.json {
				t.Errorf("JSON = %v, want %v", f.JSON, tt.json)
			}
			if f.Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", f.Verbose, tt.verbose)
			}
			if f.Quiet != tt.quiet {
				t.Errorf("Quiet = %v, want %v", f.Quiet, tt.quiet)
			}
			if f.Writer == nil || f.ErrWriter == nil {
				t.Error("expected writers to be set")
			}
		})
	}
}

// newTestFormatter returns a colorless formatter writing to buffers.
func newTestFormatter(jsonOutput, verbose, quiet bool) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	f := New(jsonOutput, verbose, quiet)
	f.NoColor = true
	f.Writer = &out
	f.ErrWriter = &errOut
	return f, &out, &errOut
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name     string
		json     bool
		input    interface{}
		contains string
	}{
		{"text mode prints value", false, "hello world", "hello world"},
		{"json mode prints JSON", true, map[string]string{"key": "value"}, `"key": "value"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, buf, _ := newTestFormatter(tt.json, false, false)

			if err := f.Print(tt.input); err != nil {
				t.Fatalf("Print() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output = %q, want to contain %q", buf.String(), tt.contains)
			}
		})
	}
}

func TestPrintJSON(t *testing.T) {
	inputs := map[string]interface{}{
		"simple map": map[string]string{"key": "value"},
		"struct":     struct{ Name string }{Name: "test"},
		"slice":      []int{1, 2, 3},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			f, buf, _ := newTestFormatter(true, false, false)

			if err := f.PrintJSON(input); err != nil {
				t.Fatalf("PrintJSON() error = %v", err)
			}

			var result interface{}
			if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
				t.Errorf("invalid JSON output: %v", err)
			}
		})
	}
}

func TestPrintError(t *testing.T) {
	testErr := errors.New("test error message")

	t.Run("text mode writes to stderr", func(t *testing.T) {
		f, out, errOut := newTestFormatter(false, false, false)

		f.PrintError(testErr)

		if out.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", out.String())
		}
		if got := errOut.String(); got != "Error: test error message\n" {
			t.Errorf("stderr = %q", got)
		}
	})

	t.Run("json mode", func(t *testing.T) {
		f, out, _ := newTestFormatter(true, false, false)

		f.PrintError(testErr)

		var result map[string]interface{}
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result["success"] != false {
			t.Errorf("expected success=false, got %v", result["success"])
		}
		if result["error"] != "test error message" {
			t.Errorf("expected error='test error message', got %v", result["error"])
		}
	})
}

func TestPrintSuccess(t *testing.T) {
	t.Run("quiet mode suppresses output", func(t *testing.T) {
		f, buf, _ := newTestFormatter(false, false, true)

		f.PrintSuccess("should not appear")

		if buf.Len() != 0 {
			t.Errorf("expected empty output in quiet mode, got %q", buf.String())
		}
	})

	t.Run("text mode prints message", func(t *testing.T) {
		f, buf, _ := newTestFormatter(false, false, false)

		f.PrintSuccess("operation successful")

		if !strings.Contains(buf.String(), "operation successful") {
			t.Errorf("expected message in output, got %q", buf.String())
		}
	})

	t.Run("json mode prints JSON", func(t *testing.T) {
		f, buf, _ := newTestFormatter(true, false, false)

		f.PrintSuccess("operation successful")

		var result map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result["success"] != true {
			t.Errorf("expected success=true, got %v", result["success"])
		}
		if result["message"] != "operation successful" {
			t.Errorf("expected message='operation successful', got %v", result["message"])
		}
	})
}

func TestVerbosef(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    string
	}{
		{"verbose mode prints", true, false, "verbose message: test\n"},
		{"non-verbose mode suppresses", false, false, ""},
		{"quiet mode overrides verbose", true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, buf, _ := newTestFormatter(false, tt.verbose, tt.quiet)

			f.Verbosef("verbose message: %s", "test")

			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestColor(t *testing.T) {
	f, _, _ := newTestFormatter(false, false, false)
	if got := f.Color(Red, "x"); got != "x" {
		t.Errorf("Color() with NoColor = %q, want %q", got, "x")
	}

	f.NoColor = false
	if got := f.Color(Red, "x"); got != Red+"x"+Reset {
		t.Errorf("Color() = %q", got)
	}

	f.JSON = true
	if got := f.Color(Red, "x"); got != "x" {
		t.Errorf("Color() in JSON mode = %q, want %q", got, "x")
	}
}

func TestTableWriter(t *testing.T) {
	t.Run("creates table with headers", func(t *testing.T) {
		f, buf, _ := newTestFormatter(false, false, false)

		table := f.NewTable("NAME", "DELIMITER")
		table.AddRow("INBOX", "/")
		table.AddRow("Archive", "/")
		table.Flush()

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[0], "NAME") {
			t.Errorf("header line = %q", lines[0])
		}
		if !strings.HasPrefix(lines[2], "Archive") {
			t.Errorf("row line = %q", lines[2])
		}
	})

	t.Run("empty headers", func(t *testing.T) {
		f, buf, _ := newTestFormatter(false, false, false)

		table := f.NewTable()
		table.AddRow("value1", "value2")
		table.Flush()

		if !strings.Contains(buf.String(), "value1") {
			t.Error("expected row data in output")
		}
	})
}

const testMessage = "From: Alice <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Subject: Weekly report\r\n" +
	"Date: Wed, 01 Jan 2020 10:00:00 +0000\r\n" +
	"\r\n" +
	"All green.\r\n"

func testView(t *testing.T, withBody bool) MessageView {
	t.Helper()
	msg, err := message.Parse([]byte(testMessage), message.Options{UID: 42})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return NewMessageView(msg, withBody)
}

func TestNewMessageView(t *testing.T) {
	v := testView(t, true)

	if v.UID != 42 {
		t.Errorf("UID = %d, want 42", v.UID)
	}
	if v.Subject.String() != "Weekly report" {
		t.Errorf("Subject = %q", v.Subject)
	}
	if v.Body == nil || strings.TrimRight(*v.Body, "\r\n") != "All green." {
		t.Errorf("Body = %v", v.Body)
	}

	if v := testView(t, false); v.Body != nil {
		t.Errorf("Body should be omitted, got %q", *v.Body)
	}
}

func TestPrintMessage(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		f, buf, _ := newTestFormatter(false, false, false)
		v := testView(t, true)
		v.SavedTo = "/tmp/report.pdf"

		if err := f.PrintMessage(v); err != nil {
			t.Fatalf("PrintMessage() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"From: Alice <alice@example.com>\n",
			"Sender's Date: Wed, 01 Jan 2020 10:00:00 +0000\n",
			"To: Bob <bob@example.com>\n",
			"Subject: Weekly report\n",
			"\nAll green.\n",
			"Attachments: /tmp/report.pdf\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json mode", func(t *testing.T) {
		f, buf, _ := newTestFormatter(true, false, false)

		if err := f.PrintMessage(testView(t, false)); err != nil {
			t.Fatalf("PrintMessage() error = %v", err)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result["from"] != "Alice <alice@example.com>" {
			t.Errorf("from = %v", result["from"])
		}
		if result["uid"] != float64(42) {
			t.Errorf("uid = %v", result["uid"])
		}
		if _, ok := result["body"]; ok {
			t.Error("body should be omitted")
		}
	})
}
