package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"gatherly/internal/domain"
)

const invitationSubject = "{{.OrganizerName}} invited you to {{.EventTitle}}"

const invitationHTML = `<html>
<body>
	<p>Hi,</p>
	<p><strong>{{.OrganizerName}}</strong> has invited you to <strong>{{.EventTitle}}</strong>.</p>
	<p>Open the event to respond to the invitation.</p>
</body>
</html>`

const invitationText = `Hi,

{{.OrganizerName}} has invited you to {{.EventTitle}}.

Open the event to respond to the invitation.
`

func renderInvitation(data *domain.EventInvitationEmailData) (subject, htmlBody, textBody string, err error) {
	subject, err = renderText("subject", invitationSubject, data)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err = renderHTML("html", invitationHTML, data)
	if err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	textBody, err = renderText("text", invitationText, data)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return subject, htmlBody, textBody, nil
}

func renderHTML(name, tmpl string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(name, tmpl string, data interface{}) (string, error) {
	t, err := texttemplate.New(name).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
