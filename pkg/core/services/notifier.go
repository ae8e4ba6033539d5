package services

// TemplateKind selects the notification template to render
type TemplateKind string

const (
	TemplateSignupConfirmation TemplateKind = "signup_confirmation"
	TemplateSignupCancelled    TemplateKind = "signup_cancelled"
	TemplateAccountWelcome     TemplateKind = "account_welcome"
)

// Notifier dispatches a notification to a volunteer. Implementations are
// best-effort: a failed send is logged by the caller and never fails the
// operation that triggered it.
type Notifier interface {
	Send(recipientEmail string, kind TemplateKind, data map[string]string) error
}
