package policy

import (
	"strings"
	"time"

	"mailkeep-hq/mailkeep/pkg/mail"
)

// DefaultRecentDaysFloor is the default recent-record protection window.
const DefaultRecentDaysFloor = 7

// Protection is one predicate in the safety chain. Extended protections
// apply only when the evaluating policy preserves important mail.
type Protection interface {
	// Name identifies the protection in evaluation summaries.
	Name() string

	// Extended reports whether the protection requires PreserveImportant.
	Extended() bool

	// Protects reports whether the record must not become a candidate.
	Protects(record *mail.EmailRecord, now time.Time) bool
}

// ProtectionConfig configures the built-in safety chain.
type ProtectionConfig struct {
	// RecentDaysFloor protects records younger than this many days.
	// Default: DefaultRecentDaysFloor.
	RecentDaysFloor int `yaml:"recent_days_floor" json:"recent_days_floor"`

	// VIPDomains lists sender domains always worth preserving.
	VIPDomains []string `yaml:"vip_domains" json:"vip_domains,omitempty"`

	// LegalKeywords lists subject keywords indicating legal or
	// contractual content.
	LegalKeywords []string `yaml:"legal_keywords" json:"legal_keywords,omitempty"`
}

// DefaultProtectionConfig returns the default safety chain configuration.
func DefaultProtectionConfig() ProtectionConfig {
	return ProtectionConfig{
		RecentDaysFloor: DefaultRecentDaysFloor,
		LegalKeywords:   []string{"contract", "agreement", "legal", "invoice", "tax"},
	}
}

// Chain is an ordered list of protections evaluated first-match-wins.
type Chain struct {
	protections []Protection
}

// NewChain builds the standard protection chain from the configuration.
// Order matters: cheap, policy-independent checks run first.
func NewChain(cfg ProtectionConfig) *Chain {
	if cfg.RecentDaysFloor <= 0 {
		cfg.RecentDaysFloor = DefaultRecentDaysFloor
	}
	return &Chain{
		protections: []Protection{
			highImportanceProtection{},
			recentProtection{days: cfg.RecentDaysFloor},
			vipSenderProtection{domains: lowercaseAll(cfg.VIPDomains)},
			attachmentProtection{},
			legalKeywordProtection{keywords: lowercaseAll(cfg.LegalKeywords)},
		},
	}
}

// Append adds a custom protection to the end of the chain.
func (c *Chain) Append(p Protection) {
	c.protections = append(c.protections, p)
}

// Check returns the name of the first protection that applies, or "" when
// the record is unprotected. preserveImportant enables the extended
// protections.
func (c *Chain) Check(record *mail.EmailRecord, preserveImportant bool, now time.Time) string {
	for _, p := range c.protections {
		if p.Extended() && !preserveImportant {
			continue
		}
		if p.Protects(record, now) {
			return p.Name()
		}
	}
	return ""
}

type highImportanceProtection struct{}

func (highImportanceProtection) Name() string   { return "high_importance" }
func (highImportanceProtection) Extended() bool { return false }
func (highImportanceProtection) Protects(record *mail.EmailRecord, _ time.Time) bool {
	return record.IsHighImportance()
}

type recentProtection struct {
	days int
}

func (recentProtection) Name() string   { return "recent" }
func (recentProtection) Extended() bool { return false }
func (p recentProtection) Protects(record *mail.EmailRecord, now time.Time) bool {
	return record.AgeDays(now) < p.days
}

type vipSenderProtection struct {
	domains []string
}

func (vipSenderProtection) Name() string   { return "vip_sender" }
func (vipSenderProtection) Extended() bool { return true }
func (p vipSenderProtection) Protects(record *mail.EmailRecord, _ time.Time) bool {
	domain := record.SenderDomain()
	if domain == "" {
		return false
	}
	for _, vip := range p.domains {
		if domain == vip || strings.HasSuffix(domain, "."+vip) {
			return true
		}
	}
	return false
}

type attachmentProtection struct{}

func (attachmentProtection) Name() string   { return "attachment" }
func (attachmentProtection) Extended() bool { return true }
func (attachmentProtection) Protects(record *mail.EmailRecord, _ time.Time) bool {
	return record.HasAttachment
}

type legalKeywordProtection struct {
	keywords []string
}

func (legalKeywordProtection) Name() string   { return "legal_keyword" }
func (legalKeywordProtection) Extended() bool { return true }
func (p legalKeywordProtection) Protects(record *mail.EmailRecord, _ time.Time) bool {
	subject := strings.ToLower(record.Subject)
	for _, kw := range p.keywords {
		if kw != "" && strings.Contains(subject, kw) {
			return true
		}
	}
	return false
}

func lowercaseAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
