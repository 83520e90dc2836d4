package admin

import (
	"context"
	"encoding/json"
	"net/mail"

	"github.com/trezcool/tripsync/core"
)

const (
	credentialsTemplate = "student_credentials"

	NoteEmailedByServer = "welcome email sent by the server"
	NoteEmailed         = "credentials emailed"
	NoteWithheld        = "credentials withheld: no mail service configured, reset the password to share access"
)

func init() {
	core.RegisterEmailTemplate(credentialsTemplate, credentialsText, credentialsHTML)
}

// deliverCredentials never shows the default password: when the server did not email the new
// student, the credentials go through the configured mail service or are withheld.
func deliverCredentials(ctx context.Context, svc *Service, f Form, resp json.RawMessage) []string {
	var creds StudentCredentials
	if len(resp) > 0 {
		if err := json.Unmarshal(resp, &creds); err != nil {
			svc.logger.Warn("admin: decoding student credentials", err)
		}
	}
	if creds.EmailSent {
		return []string{NoteEmailedByServer}
	}
	if creds.RollNo == "" {
		creds.RollNo = f.Get("roll_no")
	}
	if creds.Email == "" {
		creds.Email = f.Get("email")
	}

	if svc.mail == nil || creds.DefaultPassword == "" {
		svc.logger.Warn("admin: credentials of " + creds.RollNo + " were not emailed and are withheld")
		return []string{NoteWithheld}
	}
	svc.logger.Warn("admin: server did not email credentials of " + creds.RollNo + ", sending them ourselves")
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: f.Get("name"), Address: creds.Email}},
		Subject:      "Your TripSync account",
		TemplateName: credentialsTemplate,
		TemplateData: map[string]string{
			"Name":     f.Get("name"),
			"RollNo":   creds.RollNo,
			"Email":    creds.Email,
			"Password": creds.DefaultPassword,
		},
	})
	return []string{NoteEmailed}
}

const credentialsText = `Hello {{.Name}},

Your TripSync student account is ready.

Roll No: {{.RollNo}}
Email: {{.Email}}
Password: {{.Password}}

Please change your password after your first login.
`

const credentialsHTML = `<p>Hello {{.Name}},</p>
<p>Your TripSync student account is ready.</p>
<ul>
  <li>Roll No: <b>{{.RollNo}}</b></li>
  <li>Email: <b>{{.Email}}</b></li>
  <li>Password: <b>{{.Password}}</b></li>
</ul>
<p>Please change your password after your first login.</p>
`
