package gmailclient

import (
	"fmt"

	"github.com/handsofstluke/pantry/pkg/core/services"
)

// Send renders the template for the given kind and dispatches the email.
// Implements services.Notifier.
func (c *Client) Send(recipientEmail string, kind services.TemplateKind, data map[string]string) error {
	subject, body, err := renderTemplate(kind, data)
	if err != nil {
		return err
	}
	return c.SendEmail(recipientEmail, subject, body)
}

// renderTemplate builds the subject and plain-text body for a notification
func renderTemplate(kind services.TemplateKind, data map[string]string) (string, string, error) {
	switch kind {
	case services.TemplateSignupConfirmation:
		subject := fmt.Sprintf("You're signed up: %s", data["task_title"])
		body := fmt.Sprintf(
			"Hi %s,\n\nYou're confirmed for %s on %s, %s-%s.\n\nThank you for volunteering!\n",
			orDefault(data["first_name"], "there"),
			data["task_title"], data["task_date"], data["start_time"], data["end_time"])
		return subject, body, nil

	case services.TemplateSignupCancelled:
		subject := fmt.Sprintf("Signup cancelled: %s", data["task_title"])
		body := fmt.Sprintf(
			"Your signup for %s on %s has been cancelled.\n\nIf this wasn't you, please get in touch.\n",
			data["task_title"], data["task_date"])
		return subject, body, nil

	case services.TemplateAccountWelcome:
		subject := "Welcome to the pantry volunteer team"
		body := fmt.Sprintf(
			"Hi %s,\n\nYour account is ready. Any previous quick-signups have been linked to it.\n",
			orDefault(data["first_name"], "there"))
		return subject, body, nil

	default:
		return "", "", fmt.Errorf("unknown template kind: %s", kind)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
