// Package metrics tracks and exposes minigit access and storage metrics.
// It integrates with Prometheus to monitor protocol traffic and repository inventory.
//
// Key components:
//   - Metrics: Queues audit events and inventory results and updates collectors.
//   - Inventory: Totals of one storage scan.
//
// Usage example:
//
//	m := metrics.Default()
//	auditor := access.NewAuditor(access.WithSinks(m))
//	m.RegisterInventory(&metrics.Inventory{Repositories: 3, Bytes: 4096})
//
// Metrics implements types.AuditSink, so every audited repository access is counted.
package metrics
