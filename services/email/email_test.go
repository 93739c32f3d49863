package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/tests"
)

func newReportMessage(t *testing.T) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "UTP", Address: "utp@bitacora.test"}},
		Subject: "informe de cumplimiento 08-03-2024",
		BodyStr: "Se registraron 3 observaciones.",
	}
	require.NoError(t, msg.Attach(strings.NewReader("PK\x03\x04workbook"), "informe_cumplimiento_2024-03-08.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	return msg
}

func Test_consoleService_render(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleService(conf, testutil.NewLogger()).(*consoleService)

	out := svc.render(*newReportMessage(t))
	assert.Contains(t, out, "To: \"UTP\" <utp@bitacora.test>\n")
	assert.Contains(t, out, "Subject: [Bitácora UTP] informe de cumplimiento 08-03-2024\n")
	assert.Contains(t, out, "[attachment] informe_cumplimiento_2024-03-08.xlsx (application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, 12 bytes)\n")
	assert.NotContains(t, out, "CC:")
}

func Test_consoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock(testutil.NewConfig())

	tests := []struct {
		name string
		msg  *core.EmailMessage
		want int
	}{
		{name: "no recipients", msg: &core.EmailMessage{BodyStr: "hola"}},
		{name: "no content", msg: &core.EmailMessage{To: []mail.Address{{Address: "a@b.cl"}}}},
		{name: "report", msg: newReportMessage(t), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetSentMessages()
			svc.SendMessages(tt.msg)
			assert.Len(t, GetSentMessages(), tt.want)
		})
	}
}

func Test_sendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testutil.NewConfig(), testutil.NewLogger()).(*sendgridService)

	m := svc.prepare(*newReportMessage(t))
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Bitácora UTP] informe de cumplimiento 08-03-2024", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "utp@bitacora.test", m.Personalizations[0].To[0].Address)
	assert.Contains(t, m.Categories, reportCategory)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "informe_cumplimiento_2024-03-08.xlsx", m.Attachments[0].Filename)
	assert.Equal(t, "attachment", m.Attachments[0].Disposition)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
