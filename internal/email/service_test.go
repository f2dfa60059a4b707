package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/mailer"
)

func TestSendLowStockDigest(t *testing.T) {
	outbox := &mailer.Outbox{}
	svc := NewService(outbox)
	pharmacy := &model.Pharmacy{Name: "Farma <Centro>", Email: "farma@x.com"}
	rows := []*model.LowStockRow{{
		MedicationName: "Losartana",
		ClientName:     "Ana",
		ClientPhone:    "31973223898",
		Remaining:      2,
		WhatsAppLink:   "https://wa.me/5531973223898?text=x",
	}}

	require.NoError(t, svc.SendLowStockDigest(context.Background(), pharmacy, rows))
	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"farma@x.com"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "1 medicamento(s)")
	assert.Contains(t, sent[0].Text, "Losartana (Ana): 2 dose(s) restante(s) - (31) 97322-3898")
	assert.Contains(t, sent[0].HTML, "Farma &lt;Centro&gt;")
	assert.Contains(t, sent[0].HTML, `<a href="https://wa.me/5531973223898?text=x">WhatsApp</a>`)
}

func TestSendLowStockDigestSkipsEmpty(t *testing.T) {
	outbox := &mailer.Outbox{}
	svc := NewService(outbox)

	require.NoError(t, svc.SendLowStockDigest(context.Background(), &model.Pharmacy{Email: "a@x.com"}, nil))
	require.NoError(t, svc.SendLowStockDigest(context.Background(), &model.Pharmacy{}, []*model.LowStockRow{{Remaining: 1}}))
	assert.Empty(t, outbox.Sent())
}
