package domain

import "context"

// Sender is a pluggable email sending interface.
// Implementations resolve provider credentials from the settings service with
// config defaults. subject is plain text; body is HTML.
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
