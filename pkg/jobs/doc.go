// Package jobs runs background work on a cron schedule.
//
// StatsCollector refreshes the business gauges exported on /metrics: the
// row count of every collection, user accounts per status, and the
// database pool statistics.
package jobs
