package ports

import "context"

// Logger is the structured logging interface every component receives.
// Fields are optional key/value pairs; only the first map is used.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err alongside msg.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
