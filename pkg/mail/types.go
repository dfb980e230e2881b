package mail

import (
	"strings"
	"time"
)

// Category is the coarse importance category assigned to a record.
type Category string

const (
	CategoryHigh   Category = "high"
	CategoryMedium Category = "medium"
	CategoryLow    Category = "low"
	CategoryUnset  Category = "unset"
)

// ImportanceLevel is the ordinal importance level from the analysis bundle.
// It uses the same scale as Category but is derived per-record by the
// upstream classifier rather than set by the user.
type ImportanceLevel string

const (
	ImportanceHigh   ImportanceLevel = "high"
	ImportanceMedium ImportanceLevel = "medium"
	ImportanceLow    ImportanceLevel = "low"
)

// Analysis is the optional bundle of prior classification results attached
// to a record. All fields are advisory; absence is represented by the zero
// value (scores default to 0, level to "").
type Analysis struct {
	// ImportanceScore is a numeric importance estimate in [0,1].
	ImportanceScore float64 `json:"importance_score"`

	// ImportanceLevel is the ordinal importance level, if assigned.
	ImportanceLevel ImportanceLevel `json:"importance_level,omitempty"`

	// SpamScore is the raw spam probability in [0,1].
	SpamScore float64 `json:"spam_score"`

	// PromotionalScore is the promotional-content probability in [0,1].
	PromotionalScore float64 `json:"promotional_score"`

	// SocialScore is the social-content probability in [0,1].
	SocialScore float64 `json:"social_score"`

	// GmailCategory is the provider-assigned tab category
	// ("primary", "promotions", "social", "updates", "forums").
	GmailCategory string `json:"gmail_category,omitempty"`

	// MatchedImportanceRules lists user importance rules that matched
	// this record. A non-empty list is treated as evidence of importance.
	MatchedImportanceRules []string `json:"matched_importance_rules,omitempty"`

	// SpamIndicators lists heuristic spam signals detected in the record.
	SpamIndicators []string `json:"spam_indicators,omitempty"`

	// PromoIndicators lists heuristic promotional signals.
	PromoIndicators []string `json:"promo_indicators,omitempty"`
}

// EmailRecord is a single message in the collection. It is read-only from
// the cleanup core's perspective except for Archived/ArchiveLocation,
// which the automation engine flips when archiving.
type EmailRecord struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id,omitempty"`
	Sender        string    `json:"sender"`
	Subject       string    `json:"subject"`
	Category      Category  `json:"category"`
	Date          time.Time `json:"date"`
	SizeBytes     int64     `json:"size_bytes"`
	HasAttachment bool      `json:"has_attachment"`
	Labels        []string  `json:"labels,omitempty"`

	// Archival state, owned by this core.
	Archived        bool      `json:"archived"`
	ArchivedAt      time.Time `json:"archived_at,omitempty"`
	ArchiveLocation string    `json:"archive_location,omitempty"`

	// Analysis is the optional prior-classification bundle.
	Analysis *Analysis `json:"analysis,omitempty"`
}

// AgeDays returns the whole number of days between the record's date and now.
func (r *EmailRecord) AgeDays(now time.Time) int {
	if r.Date.IsZero() || r.Date.After(now) {
		return 0
	}
	return int(now.Sub(r.Date).Hours() / 24)
}

// HasLabel reports whether the record carries the given label,
// case-insensitively.
func (r *EmailRecord) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// SenderDomain returns the domain portion of the sender address, lowercased.
// Returns "" when the sender has no domain part.
func (r *EmailRecord) SenderDomain() string {
	at := strings.LastIndex(r.Sender, "@")
	if at < 0 || at == len(r.Sender)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimRight(r.Sender[at+1:], ">"))
}

// importanceOrdinal maps levels onto the ordinal scale low < medium < high.
// Unknown or empty levels map to medium.
func importanceOrdinal(level ImportanceLevel) int {
	switch level {
	case ImportanceLow:
		return 0
	case ImportanceHigh:
		return 2
	default:
		return 1
	}
}

// CompareImportance compares two importance levels on the ordinal scale
// low < medium < high. It returns a negative value when a < b, zero when
// equal, and a positive value when a > b.
func CompareImportance(a, b ImportanceLevel) int {
	return importanceOrdinal(a) - importanceOrdinal(b)
}

// EffectiveImportance returns the record's importance level, preferring the
// analysis bundle's level and falling back to the category when no analysis
// is present. Records without either are treated as medium.
func (r *EmailRecord) EffectiveImportance() ImportanceLevel {
	if r.Analysis != nil && r.Analysis.ImportanceLevel != "" {
		return r.Analysis.ImportanceLevel
	}
	switch r.Category {
	case CategoryHigh:
		return ImportanceHigh
	case CategoryLow:
		return ImportanceLow
	default:
		return ImportanceMedium
	}
}

// IsHighImportance reports whether the record is categorized high or carries
// an analysis importance level of high. Such records are never cleanup
// candidates.
func (r *EmailRecord) IsHighImportance() bool {
	if r.Category == CategoryHigh {
		return true
	}
	return r.Analysis != nil && r.Analysis.ImportanceLevel == ImportanceHigh
}
