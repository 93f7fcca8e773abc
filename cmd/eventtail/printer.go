package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/olekukonko/tablewriter"
)

const maxPayloadWidth = 60

var header = []string{"Time", "Room", "Event", "User", "Restricted", "Payload"}

// tablePrinter renders events as a table every size events.
type tablePrinter struct {
	out  io.Writer
	size int
	rows [][]string
}

func newTablePrinter(out io.Writer, size int) *tablePrinter {
	if size < 1 {
		size = 1
	}
	return &tablePrinter{out: out, size: size}
}

func (p *tablePrinter) Add(evt command.Event) {
	p.rows = append(p.rows, row(evt))
	if len(p.rows) >= p.size {
		p.Flush()
	}
}

// Flush prints the buffered events, if any.
func (p *tablePrinter) Flush() {
	if len(p.rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(p.rows)
	table.Render()
	p.rows = p.rows[:0]
}

func row(evt command.Event) []string {
	restricted := ""
	if evt.Restricted {
		restricted = "yes"
	}
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		payload = []byte("<unprintable>")
	}
	text := string(payload)
	if r := []rune(text); len(r) > maxPayloadWidth {
		text = string(r[:maxPayloadWidth-3]) + "..."
	}
	return []string{
		evt.Timestamp.UTC().Format(time.RFC3339),
		evt.RoomID,
		evt.Name,
		evt.UserID,
		restricted,
		text,
	}
}
