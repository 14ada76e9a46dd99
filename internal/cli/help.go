package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
)

type HelpSchema struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Commands    []CommandSchema `json:"commands"`
	GlobalFlags []FlagSchema    `json:"global_flags"`
}

type CommandSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Args        []ArgSchema     `json:"args,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
	Examples    []string        `json:"examples,omitempty"`
}

type FlagSchema struct {
	Name        string `json:"name"`
	Short       string `json:"short,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description"`
}

type ArgSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// examples is keyed by the command path below the application.
var examples = map[string][]string{
	"fetch": {
		"mailfetch fetch",
		"mailfetch fetch --mailbox Reports --filter 'UNSEEN FROM reports@example.com'",
		"mailfetch fetch --filter 'SINCE 1-Jan-2024' --save-dir ./attachments --json",
	},
	"mailbox list":    {"mailfetch mailbox list", "mailfetch mailbox list --json"},
	"mailbox show":    {"mailfetch mailbox show INBOX"},
	"config init":     {"mailfetch config init"},
	"config show":     {"mailfetch config show", "mailfetch config show --json"},
	"config set":      {"mailfetch config set server.host imap.example.com", "mailfetch config set defaults.filter ALL"},
	"config validate": {"mailfetch config validate"},
	"config reset":    {"mailfetch config reset"},
	"version":         {"mailfetch version", "mailfetch version --json"},
}

// GenerateHelpJSON describes every command and flag known to the parser.
func GenerateHelpJSON(app *kong.Application) ([]byte, error) {
	schema := HelpSchema{
		Name:        app.Name,
		Version:     Version,
		Description: app.Help,
		GlobalFlags: extractFlags(app.Flags),
		Commands:    extractCommands(app.Node, ""),
	}

	return json.MarshalIndent(schema, "", "  ")
}

func extractCommands(node *kong.Node, prefix string) []CommandSchema {
	var commands []CommandSchema
	for _, child := range node.Children {
		if child.Hidden || child.Type != kong.CommandNode {
			continue
		}
		path := strings.TrimSpace(prefix + " " + child.Name)
		commands = append(commands, CommandSchema{
			Name:        child.Name,
			Description: child.Help,
			Flags:       extractFlags(child.Flags),
			Args:        extractArgs(child.Positional),
			Subcommands: extractCommands(child, path),
			Examples:    examples[path],
		})
	}
	return commands
}

func extractFlags(flags []*kong.Flag) []FlagSchema {
	var schemas []FlagSchema
	for _, flag := range flags {
		if flag.Hidden || flag.Name == "help" {
			continue
		}
		schema := FlagSchema{
			Name:        "--" + flag.Name,
			Type:        getTypeString(flag.Target.Type()),
			Default:     flag.Default,
			Required:    flag.Required,
			Description: flag.Help,
		}
		if flag.Short != 0 {
			schema.Short = "-" + string(flag.Short)
		}
		schemas = append(schemas, schema)
	}
	return schemas
}

func extractArgs(args []*kong.Positional) []ArgSchema {
	var schemas []ArgSchema
	for _, arg := range args {
		schemas = append(schemas, ArgSchema{
			Name:        arg.Name,
			Type:        getTypeString(arg.Target.Type()),
			Required:    arg.Required,
			Description: arg.Help,
		})
	}
	return schemas
}

func getTypeString(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + getTypeString(t.Elem())
	default:
		return t.String()
	}
}

func PrintHelpJSON(w io.Writer, app *kong.Application) error {
	data, err := GenerateHelpJSON(app)
	if err != nil {
		return fmt.Errorf("failed to generate help JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
