// Mailkeep is an email cleanup automation daemon.
//
// It tracks mailbox access patterns, scores records for staleness, and
// runs policy-driven cleanup jobs: on demand, on a cron schedule, as a
// continuous trickle, and in response to storage pressure.
//
// Usage:
//
//	# Start the daemon with default configuration
//	mailkeep run
//
//	# Start with a custom configuration file
//	mailkeep run --config /etc/mailkeep/config.yaml
//
//	# Run a single policy once and exit
//	mailkeep sweep --policy archive-promotions
//
//	# Preview a sweep without touching any records
//	mailkeep sweep --policy archive-promotions --dry-run
//
//	# Show version information
//	mailkeep version
package main

func main() {
	Execute()
}
