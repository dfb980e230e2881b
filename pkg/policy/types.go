package policy

import (
	"time"

	"mailkeep-hq/mailkeep/pkg/mail"
	"mailkeep-hq/mailkeep/pkg/mailstore"
)

// Action is what a policy does with its candidates.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
)

// Criteria are the optional, AND-combined record filters of a policy.
// Nil fields are not applied. Archived records are always excluded.
type Criteria struct {
	// AgeDaysMin matches records at least this many days old.
	AgeDaysMin *int `yaml:"age_days_min" json:"age_days_min,omitempty"`

	// ImportanceLevelMax matches records whose importance is at most this
	// level on the ordinal scale low < medium < high.
	ImportanceLevelMax mail.ImportanceLevel `yaml:"importance_level_max" json:"importance_level_max,omitempty"`

	// SizeBytesMin matches records at least this large.
	SizeBytesMin *int64 `yaml:"size_bytes_min" json:"size_bytes_min,omitempty"`

	// SpamScoreMin matches records with at least this spam score.
	SpamScoreMin *float64 `yaml:"spam_score_min" json:"spam_score_min,omitempty"`

	// PromotionalScoreMin matches records with at least this promotional
	// score.
	PromotionalScoreMin *float64 `yaml:"promotional_score_min" json:"promotional_score_min,omitempty"`

	// AccessScoreMax matches records whose derived access score is at
	// most this value.
	AccessScoreMax *float64 `yaml:"access_score_max" json:"access_score_max,omitempty"`

	// NoAccessDays matches records not accessed for at least this many
	// days (never-accessed records always match).
	NoAccessDays *int `yaml:"no_access_days" json:"no_access_days,omitempty"`
}

// Safety are the per-policy safety settings.
type Safety struct {
	// MaxEmailsPerRun caps how many records a single run may act on.
	MaxEmailsPerRun int `yaml:"max_emails_per_run" json:"max_emails_per_run"`

	// PreserveImportant enables the extended protection rules
	// (VIP senders, attachments, legal keywords).
	PreserveImportant bool `yaml:"preserve_important" json:"preserve_important"`

	// RequireConfirmation marks the policy as needing operator
	// confirmation before destructive runs.
	RequireConfirmation bool `yaml:"require_confirmation" json:"require_confirmation"`

	// DryRunFirst requests a dry run before the first destructive run.
	DryRunFirst bool `yaml:"dry_run_first" json:"dry_run_first"`
}

// RunStats is bookkeeping updated by the automation engine after each run.
type RunStats struct {
	TotalRuns    int       `json:"total_runs"`
	TotalCleaned int       `json:"total_cleaned"`
	LastRunAt    time.Time `json:"last_run_at,omitempty"`
}

// Policy is a cleanup policy definition. The engine never mutates a policy
// except for RunStats bookkeeping.
type Policy struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`

	// Enabled policies participate in evaluation; disabled policies can
	// only run when explicitly forced.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Priority orders evaluation; higher runs first.
	Priority int `yaml:"priority" json:"priority"`

	Criteria Criteria `yaml:"criteria" json:"criteria"`
	Action   Action   `yaml:"action" json:"action"`
	Safety   Safety   `yaml:"safety" json:"safety"`

	// Schedule is an optional cron expression for scheduled runs.
	Schedule string `yaml:"schedule" json:"schedule,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RunStats  RunStats  `json:"run_stats"`
}

// Validate checks the policy for structural problems.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "policy name cannot be empty"}
	}
	switch p.Action {
	case ActionDelete, ActionArchive:
	default:
		return &ValidationError{Field: "action", Message: "action must be delete or archive"}
	}
	if p.Safety.MaxEmailsPerRun < 0 {
		return &ValidationError{Field: "safety.max_emails_per_run", Message: "cannot be negative"}
	}
	return nil
}

// StoreCriteria translates the policy criteria into a record-store query
// for push-down filtering. Access-based criteria cannot be pushed down
// (the record store has no access data) and are applied in memory during
// evaluation.
func (c *Criteria) StoreCriteria() *mailstore.Criteria {
	return &mailstore.Criteria{
		AgeDaysMin:          c.AgeDaysMin,
		ImportanceLevelMax:  c.ImportanceLevelMax,
		SizeBytesMin:        c.SizeBytesMin,
		SpamScoreMin:        c.SpamScoreMin,
		PromotionalScoreMin: c.PromotionalScoreMin,
		ExcludeArchived:     true,
	}
}
