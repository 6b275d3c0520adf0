// Package core provides the business logic for custodian and asset records.
//
// This package holds the domain model, the import wizard and the reporting
// queries, independent of any UI or transport layer. It can be used by web
// handlers, the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Store: Interfaces for custodians, assets, jobs, users and audit entries.
//     Implemented by internal/database (PostgreSQL) and internal/memstore.
//   - Service: Validated CRUD, search and coverage reports over a Store.
//   - Wizard: The upload, map, confirm, execute and result import flow.
//   - SessionStore: Per-user wizard state, implemented by internal/session.
//
// # Flow Registry
//
// Import flows are registered at init time using [RegisterFlow]. Each
// [FlowDefinition] describes the fields a source row maps to and how a row
// becomes a record:
//
//	core.RegisterFlow(core.FlowDefinition{
//	    Info: core.FlowInfo{Key: "custodians", Label: "Custodians"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "name", Label: "Name", Required: true, Aliases: []string{"gestor"}},
//	    },
//	    Prepare: prepareCustodian,
//	    Commit:  commitCustodians,
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB002-DB004: Database errors (duplicates, foreign keys)
//   - VAL001: Validation errors
//   - FILE001-FILE005: File errors (format, encoding, empty)
//   - CONN001-CONN002: Connector errors (credentials, drivers)
//   - OWN001: Ownership conflicts during reconciliation
//
// # Audit Logging
//
// Destructive operations and imports are recorded with [LogAudit]. Failures
// to record an entry are logged and never abort the operation.
package core
