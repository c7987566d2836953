// Package domain defines the core business types for the attribution platform.
//
// Types in this package are pure value objects with no behavior beyond
// derivations that are pure functions on the type (e.g. funnel stage).
// They are the shared language between handlers, sync collectors, the
// analytics layer, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
