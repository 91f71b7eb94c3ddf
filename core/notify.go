package core

import "github.com/pkg/errors"

// Notification levels, from a spinner to a message the user must acknowledge.
const (
	NotifyLoading  = "loading"
	NotifySuccess  = "success"
	NotifyError    = "error"    // transient, dismissible
	NotifyBlocking = "blocking" // must be acknowledged before retrying
)

type (
	Notification struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}

	// Notifier is anything that can surface toasts to the participant.
	Notifier interface {
		Notify(n Notification)
	}
)

func (n Notification) IsError() bool {
	return n.Level == NotifyError || n.Level == NotifyBlocking
}

// UserMessage returns the message to show for err: the server's own words when it sent any.
func UserMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
