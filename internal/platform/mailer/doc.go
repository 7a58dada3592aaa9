// Package mailer provides the SMTP-backed implementation of the
// service.Notifier capability used to send task-completion emails.
package mailer
