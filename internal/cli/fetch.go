package cli

import (
	"fmt"
	"os"

	"github.com/bscott/mailfetch/internal/message"
	"github.com/bscott/mailfetch/internal/output"
)

func (c *FetchCmd) Run(ctx *Context) error {
	session, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	name := c.Mailbox
	if name == "" {
		name = ctx.Config.Defaults.Mailbox
	}
	filter := c.Filter
	if filter == "" {
		filter = ctx.Config.Defaults.Filter
	}
	readOnly := ctx.Config.Defaults.ReadOnly && !c.ReadWrite

	mailbox := session.SelectMailbox(name, readOnly)
	if mailbox == nil {
		return fmt.Errorf("cannot open mailbox %q", name)
	}

	dir := c.SaveDir
	if dir == "" {
		dir = ctx.Config.DownloadDir()
	}
	if !c.NoAttachments {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create download directory: %w", err)
		}
	}

	messages := mailbox.FetchMessages(filter)
	ctx.Formatter.Verbosef("%d message(s) in %s match %q", messages.Len(), mailbox.Name(), filter)

	views := []output.MessageView{}
	count := 0
	for msg := range messages.All() {
		count++
		view := output.NewMessageView(msg, !c.NoBody)
		if !c.NoAttachments {
			if saved := msg.SaveAttachments(dir); saved != message.NoAttachment {
				view.SavedTo = saved
				view.Attachments = msg.Attachments()
			}
		}

		if ctx.Formatter.JSON {
			views = append(views, view)
		} else if err := ctx.Formatter.PrintMessage(view); err != nil {
			return err
		}

		if c.Limit > 0 && count >= c.Limit {
			break
		}
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]interface{}{
			"mailbox":  mailbox.Name(),
			"filter":   filter,
			"count":    count,
			"messages": views,
		})
	}
	if count == 0 && !ctx.Formatter.Quiet {
		fmt.Fprintln(ctx.Formatter.Writer, "No messages found.")
	}
	return nil
}
