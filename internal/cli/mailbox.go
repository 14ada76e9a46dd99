package cli

import (
	"fmt"
	"strings"
)

func (c *MailboxListCmd) Run(ctx *Context) error {
	session, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx.Formatter.Verbosef("Listing mailboxes...")

	mailboxes, err := session.ListMailboxes()
	if err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"count":     len(mailboxes),
			"mailboxes": mailboxes,
		})
	}

	if len(mailboxes) == 0 {
		fmt.Fprintln(ctx.Formatter.Writer, "No mailboxes found.")
		return nil
	}

	table := ctx.Formatter.NewTable("NAME", "ATTRIBUTES")
	for _, mb := range mailboxes {
		table.AddRow(mb.Name, formatAttributes(mb.Attributes))
	}
	table.Flush()
	return nil
}

func (c *MailboxShowCmd) Run(ctx *Context) error {
	name := c.Name
	if name == "" {
		name = ctx.Config.Defaults.Mailbox
	}

	session, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	mailbox := session.SelectMailbox(name, true)
	if mailbox == nil {
		return fmt.Errorf("cannot open mailbox %q", name)
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"mailbox":  mailbox.Name(),
			"messages": mailbox.NumMessages(),
		})
	}

	fmt.Fprintf(ctx.Formatter.Writer, "%s: %d message(s)\n", mailbox.Name(), mailbox.NumMessages())
	return nil
}

// formatAttributes joins attributes without their leading backslash.
func formatAttributes(attrs []string) string {
	cleaned := make([]string, len(attrs))
	for i, attr := range attrs {
		cleaned[i] = strings.TrimPrefix(attr, "\\")
	}
	return strings.Join(cleaned, ", ")
}
