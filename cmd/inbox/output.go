package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

type printer struct {
	w      io.Writer
	format string
}

func (p printer) notifications(ns []notification.Notification, unread int) error {
	if p.format == "json" {
		return p.json(map[string]any{"notifications": ns, "unread_count": unread})
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTYPE\tFROM\tTITLE\tAGE\tREAD\n")
	for _, n := range ns {
		p.row(tw, n)
	}
	fmt.Fprintf(tw, "\nunread: %d\n", unread)
	return tw.Flush()
}

func (p printer) notification(n notification.Notification) error {
	if p.format == "json" {
		return p.json(n)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	p.row(tw, n)
	return tw.Flush()
}

func (p printer) row(w io.Writer, n notification.Notification) {
	from := n.SenderID
	if from == "" {
		from = "-"
	}
	read := " "
	if n.IsRead {
		read = "x"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		n.ID, n.Type, from, n.Title, time.Since(n.CreatedAt).Truncate(time.Second), read)
}

func (p printer) count(unread int) error {
	if p.format == "json" {
		return p.json(map[string]int{"unread_count": unread})
	}
	_, err := fmt.Fprintln(p.w, unread)
	return err
}

func (p printer) line(format string, args ...any) {
	if p.format == "json" {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
