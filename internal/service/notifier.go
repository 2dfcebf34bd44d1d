package service

import "context"

// TemplateActivateAccount is the mail template carrying an activation code.
const TemplateActivateAccount = "activate_account"

// Notification is a best-effort message to a user.
type Notification struct {
	Email    string
	FullName string
	Template string
	Subject  string
	Params   map[string]string
}

// Notifier hands notifications to an asynchronous channel. Delivery is
// fire-and-forget: a returned error means the hand-off failed and is
// only logged by callers.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
