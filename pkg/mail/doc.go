// Package mail defines the email record model shared by the cleanup
// subsystem. Records are owned by the external record store; this core
// reads them and flips only the archived flags.
//
// # Record Model
//
// An EmailRecord carries identity, category, timestamps, size, labels,
// archival state, and an optional Analysis bundle produced by an earlier
// classification pass (importance, spam and promotional scores).
//
// The importance levels form an ordinal scale (low < medium < high) used
// by policy criteria comparisons; see CompareImportance.
package mail
