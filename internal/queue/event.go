// Package queue defines the notification messages exchanged over
// RabbitMQ and the worker that turns them into mail.
package queue

// NotificationQueue is the durable queue carrying NotificationEvent
// messages.
const NotificationQueue = "notifications.email"

// NotificationEvent asks the worker to render Template with Params and
// mail the result to Email. ID is unique per message so that the mail
// log can be correlated with the publisher's log.
type NotificationEvent struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	FullName  string            `json:"full_name"`
	Template  string            `json:"template"`
	Subject   string            `json:"subject"`
	Params    map[string]string `json:"params"`
	CreatedAt string            `json:"created_at"`
}
