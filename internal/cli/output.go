package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Printer writes styled console output.
type Printer struct {
	w        io.Writer
	title    lipgloss.Style
	success  lipgloss.Style
	warn     lipgloss.Style
	errStyle lipgloss.Style
	muted    lipgloss.Style
	header   lipgloss.Style
}

func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:        w,
		title:    r.NewStyle().Bold(true).Underline(true),
		success:  r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("11")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:    r.NewStyle().Faint(true),
		header:   r.NewStyle().Bold(true).Padding(0, 1),
	}
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *Printer) Title(s string) {
	fmt.Fprintln(p.w, p.title.Render(s))
}

func (p *Printer) Success(format string, a ...any) {
	fmt.Fprintln(p.w, p.success.Render("✓ "+fmt.Sprintf(format, a...)))
}

func (p *Printer) Warn(format string, a ...any) {
	fmt.Fprintln(p.w, p.warn.Render(fmt.Sprintf(format, a...)))
}

// Failure reports a failed action, e.g. "Failed to add product: ...".
func (p *Printer) Failure(action string, err error) {
	fmt.Fprintln(p.w, p.errStyle.Render(fmt.Sprintf("Failed to %s: %s", action, Message(err))))
}

func (p *Printer) Error(format string, a ...any) {
	fmt.Fprintln(p.w, p.errStyle.Render(fmt.Sprintf(format, a...)))
}

// Products renders a product table; low-stock rows are flagged.
func (p *Printer) Products(products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(p.w, p.muted.Render("No products found"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name", "Description", "Unit Price($)", "Quantity", "Alert", "Last Entry", "Last Exit", "").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, pr := range products {
		flag := ""
		if pr.LowStock() {
			flag = p.warn.Render("LOW")
		}
		t.Row(
			strconv.Itoa(int(pr.ID)),
			pr.Name,
			pr.Description,
			strconv.FormatFloat(pr.UnitPrice, 'f', 2, 64),
			strconv.FormatUint(pr.Quantity, 10),
			strconv.FormatUint(pr.AlertThreshold, 10),
			pr.LastEntryDate.String(),
			pr.LastExitDate.String(),
			flag,
		)
	}

	fmt.Fprintln(p.w, t.Render())
}

// Events renders audit events, newest first as given.
func (p *Printer) Events(events []*audit.Event) {
	if len(events) == 0 {
		fmt.Fprintln(p.w, p.muted.Render("No activity found"))
		return
	}

	for _, event := range events {
		level := string(event.Level)
		switch event.Level {
		case audit.LevelWarning:
			level = p.warn.Render(level)
		case audit.LevelError, audit.LevelCritical:
			level = p.errStyle.Render(level)
		}

		fmt.Fprintf(p.w, "[%s] %s - %s\n", event.Timestamp.Local().Format(timeLayout), level, event.Action)
		fmt.Fprintf(p.w, "Resource: %s | Success: %v\n", event.Resource, event.Success)
		if event.ErrorMsg != "" {
			fmt.Fprintf(p.w, "Error: %s\n", event.ErrorMsg)
		}
		if event.Metadata != "" {
			fmt.Fprintf(p.w, "Metadata: %s\n", event.Metadata)
		}
		fmt.Fprintln(p.w, p.muted.Render("---"))
	}
}
