package staleness

import (
	"time"

	"mailkeep-hq/mailkeep/pkg/access"
	"mailkeep-hq/mailkeep/pkg/mail"
)

// Size tier boundaries.
const (
	sizeSmall  = 100 << 10 // 100KB
	sizeMedium = 1 << 20   // 1MB
	sizeLarge  = 10 << 20  // 10MB
)

// Importance refinement thresholds for the numeric analysis score.
const (
	importanceHighThreshold = 0.7
	importanceLowThreshold  = 0.3
)

// ageFactor maps days-since-received onto [0,1].
//
// Tiers: [0,30] -> [0,0.3], (30,90] -> [0.3,0.6], (90,365] -> [0.6,0.9],
// beyond a year asymptotically approaches 1.0.
func ageFactor(ageDays int) float64 {
	d := float64(ageDays)
	switch {
	case d <= 0:
		return 0
	case d <= 30:
		return 0.3 * d / 30
	case d <= 90:
		return 0.3 + 0.3*(d-30)/60
	case d <= 365:
		return 0.6 + 0.3*(d-90)/275
	default:
		// Half of the remaining headroom per additional year.
		over := d - 365
		return 0.9 + 0.1*over/(over+365)
	}
}

// importanceFactor maps category and the optional analysis bundle onto
// [0,1], where higher means safer to remove.
func importanceFactor(record *mail.EmailRecord) float64 {
	var score float64
	switch record.Category {
	case mail.CategoryHigh:
		score = 0.1
	case mail.CategoryMedium:
		score = 0.5
	case mail.CategoryLow:
		score = 0.8
	default:
		score = 0.5
	}

	analysis := record.Analysis
	if analysis == nil {
		return score
	}

	// Numeric score or explicit level refine the category base.
	if analysis.ImportanceLevel == mail.ImportanceHigh || analysis.ImportanceScore > importanceHighThreshold {
		score = min(score, 0.2)
	}
	if analysis.ImportanceLevel == mail.ImportanceLow {
		score = max(score, 0.8)
	} else if analysis.ImportanceScore > 0 && analysis.ImportanceScore < importanceLowThreshold {
		score = max(score, 0.7)
	}

	// Matched importance rules are evidence of importance.
	if len(analysis.MatchedImportanceRules) > 0 {
		score = min(score, 0.4)
	}

	return score
}

// sizeFactor maps record size onto [0,1]. Small records score 0.1; medium
// and large tiers interpolate linearly; very large records approach 1.0
// asymptotically.
func sizeFactor(sizeBytes int64) float64 {
	s := float64(sizeBytes)
	switch {
	case sizeBytes <= sizeSmall:
		return 0.1
	case sizeBytes <= sizeMedium:
		return 0.1 + 0.4*(s-sizeSmall)/(sizeMedium-sizeSmall)
	case sizeBytes <= sizeLarge:
		return 0.5 + 0.3*(s-sizeMedium)/(sizeLarge-sizeMedium)
	default:
		over := s - sizeLarge
		return 0.8 + 0.2*over/(over+sizeLarge)
	}
}

// spamFactor maps spam and promotional signals onto [0,1]. The result is
// the maximum of the raw spam score, a discounted promotional score,
// label-based floors, and indicator-count estimates.
func spamFactor(record *mail.EmailRecord) float64 {
	var score float64

	if record.Analysis != nil {
		score = max(score, record.Analysis.SpamScore)
		score = max(score, 0.7*record.Analysis.PromotionalScore)

		// Indicator-count estimates, capped below the explicit scores.
		spamInd := 0.2 * float64(len(record.Analysis.SpamIndicators))
		score = max(score, min(spamInd, 0.8))
		promoInd := 0.2 * float64(len(record.Analysis.PromoIndicators))
		score = max(score, min(promoInd, 0.6))

		if record.Analysis.GmailCategory == "promotions" {
			score = max(score, 0.6)
		}
	}

	if record.HasLabel("spam") {
		score = max(score, 0.9)
	}
	if record.HasLabel("promotions") {
		score = max(score, 0.6)
	}

	return min(score, 1)
}

// accessFactor maps the derived access summary onto [0,1]. Records that
// were never accessed score 0.8; otherwise the score follows days since
// the last access, discounted for frequently or interactively accessed
// records.
func accessFactor(summary *access.AccessSummary, now time.Time) float64 {
	if summary == nil || summary.TotalAccesses == 0 {
		return 0.8
	}

	days := now.Sub(summary.LastAccessed).Hours() / 24
	var score float64
	switch {
	case days <= 7:
		score = 0.1
	case days <= 30:
		score = 0.2 + 0.3*(days-7)/23
	case days <= 90:
		score = 0.5 + 0.3*(days-30)/60
	default:
		over := days - 90
		score = 0.8 + 0.2*over/(over+90)
	}

	// Frequent or interactive access argues against staleness.
	if summary.TotalAccesses > 10 {
		score *= 0.6
	}
	if summary.SearchInteractions > 3 {
		score *= 0.7
	}

	return score
}
