// Package policy owns cleanup policy definitions and their evaluation.
//
// A Policy combines criteria (which records are eligible), an action
// (delete or archive), safety settings, and an optional cron schedule.
// Policies carry an integer priority; higher priorities evaluate first and
// each record is claimed by at most one policy.
//
// # Safety Gate
//
// Before a record can become a cleanup candidate it passes an ordered
// chain of Protection predicates: high category/importance, a recent-days
// floor, and (when the policy preserves important mail) VIP sender
// domains, attachments, and legal/contract keywords. A protected record is
// never a candidate, regardless of its staleness score.
package policy
