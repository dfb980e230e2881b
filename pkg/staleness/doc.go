// Package staleness computes a composite staleness score per email record.
//
// # Scoring Model
//
// Five independent sub-factors, each normalized to [0,1]:
//
//   - age: piecewise-linear in days since the record was received
//   - importance: category base refined by the analysis bundle
//   - size: tiered by record size
//   - spam: max of spam/promotional signals and label floors
//   - access: recency of use, discounted for frequent access
//
// The total score is the weighted sum of the sub-factors. Default weights
// are {age: 0.25, importance: 0.30, size: 0.15, spam: 0.15, access: 0.15};
// updated weight sets are expected to sum to 1.0 within a 0.001 tolerance
// and are warned about (not rejected) when they do not.
//
// # Recommendation
//
// A record is always recommended "keep" when its category or importance
// level is high, or when it is younger than seven days. This floor is
// independent of the score. Otherwise: total >= 0.8 recommends delete,
// total >= 0.6 recommends archive, anything lower keeps.
//
// Confidence reflects sub-factor agreement: 1 - 2*stddev(factors), with a
// +0.2 boost when at least three factors agree on high (>0.7) or low
// (<0.3) staleness, clamped to [0,1].
package staleness
