package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// JobIDKey is the context key for cleanup job identifiers.
	JobIDKey contextKey = "job_id"

	// PolicyIDKey is the context key for policy identifiers.
	PolicyIDKey contextKey = "policy_id"

	// TriggerKey is the context key for the trigger reason of a run.
	TriggerKey contextKey = "trigger"
)

// WithJobID adds a job ID to the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// GetJobID retrieves the job ID from the context.
func GetJobID(ctx context.Context) string {
	if id, ok := ctx.Value(JobIDKey).(string); ok {
		return id
	}
	return ""
}

// WithPolicyID adds a policy ID to the context.
func WithPolicyID(ctx context.Context, policyID string) context.Context {
	return context.WithValue(ctx, PolicyIDKey, policyID)
}

// GetPolicyID retrieves the policy ID from the context.
func GetPolicyID(ctx context.Context) string {
	if id, ok := ctx.Value(PolicyIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTrigger adds a trigger reason to the context.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger retrieves the trigger reason from the context.
func GetTrigger(ctx context.Context) string {
	if t, ok := ctx.Value(TriggerKey).(string); ok {
		return t
	}
	return ""
}

// ContextFields extracts known context values as alternating key/value
// pairs suitable for slog calls. Missing values are omitted.
func ContextFields(ctx context.Context) []any {
	var fields []any
	if id := GetJobID(ctx); id != "" {
		fields = append(fields, string(JobIDKey), id)
	}
	if id := GetPolicyID(ctx); id != "" {
		fields = append(fields, string(PolicyIDKey), id)
	}
	if t := GetTrigger(ctx); t != "" {
		fields = append(fields, string(TriggerKey), t)
	}
	return fields
}
