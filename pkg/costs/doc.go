// Package costs implements the cost monitor: an append-only log of
// per-request spend with calendar-period aggregation, budget alerting,
// and export.
//
// # Overview
//
// Every completed request is recorded as an immutable Entry. Aggregation
// happens on read: CurrentCosts filters entries into the requested
// calendar period (daily = since local midnight, weekly = since the most
// recent Monday midnight, monthly = since the first of the month) and
// derives totals and per-provider/per-model breakdowns.
//
// # Budget alerting
//
// BudgetStatus compares a period's spend against its configured limit and
// yields an alert level:
//
//	Warning   >= warning threshold (default 80%)
//	Critical  >= critical threshold (default 95%)
//	Emergency spend >= limit; ShouldPause is set
//
// Registered callbacks fire once per level crossing and are re-armed when
// the level drops. Callback panics are recovered and logged; a broken
// notifier never breaks cost tracking.
//
// # Retention
//
// Entries older than the retention window are pruned opportunistically
// inside Record, throttled to at most once per hour. An optional Archiver
// receives every entry for durable storage before pruning can touch it.
//
// # Thread Safety
//
// All monitor operations are safe for concurrent use. Entry appends and
// budget evaluation happen under one lock, so readers never observe a
// partially-updated aggregate.
package costs
