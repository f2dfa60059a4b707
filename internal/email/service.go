package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/mailer"
	"github.com/jwalitptl/adherence-api/pkg/phone"
)

type Service interface {
	SendLowStockDigest(ctx context.Context, pharmacy *model.Pharmacy, rows []*model.LowStockRow) error
}

type service struct {
	sender mailer.Sender
}

func NewService(sender mailer.Sender) Service {
	return &service{sender: sender}
}

// SendLowStockDigest mails the pharmacy the medications about to run out,
// with a WhatsApp link per client.
func (s *service) SendLowStockDigest(ctx context.Context, pharmacy *model.Pharmacy, rows []*model.LowStockRow) error {
	if pharmacy.Email == "" || len(rows) == 0 {
		return nil
	}
	msg := &mailer.Message{
		To:      []string{pharmacy.Email},
		Subject: fmt.Sprintf("%d medicamento(s) acabando - %s", len(rows), pharmacy.Name),
		Text:    digestText(pharmacy, rows),
		HTML:    digestHTML(pharmacy, rows),
	}
	return s.sender.Send(ctx, msg)
}

func digestText(pharmacy *model.Pharmacy, rows []*model.LowStockRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\nOs seguintes medicamentos estão acabando:\n\n", pharmacy.Name)
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s (%s): %d dose(s) restante(s)", r.MedicationName, r.ClientName, r.Remaining)
		if r.ClientPhone != "" {
			fmt.Fprintf(&b, " - %s", phone.Display(r.ClientPhone))
		}
		if r.WhatsAppLink != "" {
			fmt.Fprintf(&b, "\n  %s", r.WhatsAppLink)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func digestHTML(pharmacy *model.Pharmacy, rows []*model.LowStockRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Olá %s,</p><p>Os seguintes medicamentos estão acabando:</p><table>", html.EscapeString(pharmacy.Name))
	b.WriteString("<tr><th>Cliente</th><th>Medicamento</th><th>Restante</th><th></th></tr>")
	for _, r := range rows {
		link := ""
		if r.WhatsAppLink != "" {
			link = fmt.Sprintf(`<a href="%s">WhatsApp</a>`, html.EscapeString(r.WhatsAppLink))
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(r.ClientName), html.EscapeString(r.MedicationName), r.Remaining, link)
	}
	b.WriteString("</table>")
	return b.String()
}
