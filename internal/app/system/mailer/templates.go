// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ConnectionEmailData holds data for connection request and reminder emails.
type ConnectionEmailData struct {
	SiteName      string
	RecipientName string
	SenderName    string
	SenderHandle  string
	ConnectionURL string
}

// BuildConnectionRequestEmail tells the recipient someone wants to connect.
func BuildConnectionRequestEmail(data ConnectionEmailData) Email {
	return Email{
		Subject: fmt.Sprintf("%s wants to connect with you on %s", data.SenderName, data.SiteName),
		TextBody: fmt.Sprintf("Hi %s,\n\n%s (@%s) sent you a connection request.\n\nReview it here:\n%s\n",
			data.RecipientName, data.SenderName, data.SenderHandle, data.ConnectionURL),
		HTMLBody: render(connectionHTML, struct {
			ConnectionEmailData
			Lead string
		}{data, "sent you a connection request."}),
	}
}

// BuildConnectionReminderEmail nudges the recipient about a request still
// pending.
func BuildConnectionReminderEmail(data ConnectionEmailData) Email {
	return Email{
		Subject: fmt.Sprintf("Reminder: %s is waiting for your reply", data.SenderName),
		TextBody: fmt.Sprintf("Hi %s,\n\n%s (@%s) is still waiting for you to accept their connection request.\n\nReview it here:\n%s\n",
			data.RecipientName, data.SenderName, data.SenderHandle, data.ConnectionURL),
		HTMLBody: render(connectionHTML, struct {
			ConnectionEmailData
			Lead string
		}{data, "is still waiting for you to accept their connection request."}),
	}
}

// DigestEmailData holds data for the unseen-message digest.
type DigestEmailData struct {
	SiteName      string
	RecipientName string
	Unseen        int
	MessagesURL   string
}

// UnseenPhrase renders "1 unseen message" or "N unseen messages".
func UnseenPhrase(n int) string {
	if n == 1 {
		return "1 unseen message"
	}
	return fmt.Sprintf("%d unseen messages", n)
}

// BuildDigestEmail summarises a recipient's unseen messages.
func BuildDigestEmail(data DigestEmailData) Email {
	phrase := UnseenPhrase(data.Unseen)
	return Email{
		Subject: fmt.Sprintf("You have %s on %s", phrase, data.SiteName),
		TextBody: fmt.Sprintf("Hi %s,\n\nYou have %s.\n\nRead them here:\n%s\n",
			data.RecipientName, phrase, data.MessagesURL),
		HTMLBody: render(digestHTML, struct {
			DigestEmailData
			Phrase string
		}{data, phrase}),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

var connectionHTML = template.Must(template.New("connection").Parse(layoutHead + `
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Hi {{.RecipientName}}, <strong>{{.SenderName}}</strong> (@{{.SenderHandle}}) {{.Lead}}
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.ConnectionURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Review request
                    </a>
                  </td>
                </tr>
              </table>` + layoutFoot))

var digestHTML = template.Must(template.New("digest").Parse(layoutHead + `
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Hi {{.RecipientName}}, you have <strong>{{.Phrase}}</strong>.
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.MessagesURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Open messages
                    </a>
                  </td>
                </tr>
              </table>` + layoutFoot))

const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">`

const layoutFoot = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
