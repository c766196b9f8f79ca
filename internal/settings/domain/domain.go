package domain

import (
	"context"
	"time"
)

// Service provides typed access to runtime application settings with defaults.
type Service interface {
	GetString(ctx context.Context, key string, def string) (string, error)
	GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, def int) (int, error)
}

// Repository abstracts storage of app settings.
type Repository interface {
	// Get returns (value, found, err) for an exact key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Upsert stores a key.
	Upsert(ctx context.Context, key string, value string, secret bool) error
}

// Common keys
const (
	KeyPublicBaseURL = "app.public_base_url"

	KeyEmailProvider = "email.provider" // values: smtp | brevo
	KeySMTPHost      = "email.smtp.host"
	KeySMTPPort      = "email.smtp.port"
	KeySMTPUsername  = "email.smtp.username"
	KeySMTPPassword  = "email.smtp.password"
	KeySMTPFrom      = "email.smtp.from"
	KeyBrevoAPIKey   = "email.brevo.api_key"
	KeyBrevoSender   = "email.brevo.sender"

	// Delivery engine tunables. Durations use Go duration strings (e.g. "10s").
	KeyDeliveryBatchSize   = "delivery.batch_size"
	KeyDeliveryLookahead   = "delivery.lookahead"
	KeyDeliveryTaskTimeout = "delivery.task_timeout"

	// Rate limiting keys for the notification admin endpoints.
	KeyRLEnqueueLimit  = "notifications.ratelimit.enqueue.limit"
	KeyRLEnqueueWindow = "notifications.ratelimit.enqueue.window"
	KeyRLProcessLimit  = "notifications.ratelimit.process.limit"
	KeyRLProcessWindow = "notifications.ratelimit.process.window"
)
