// Package integration contains the supplier integration bounded context.
// It models everything the engine learns from, or sends to, an external
// catalog supplier.
//
// Key concepts:
//   - SupplierGateway: port for the supplier REST API (catalog, stock, orders, logistics, webhooks, sourcing)
//   - CatalogEntry: staged supplier product awaiting selection and import
//   - Notification: inbound change notification, a tagged union discriminated by Type
//   - NotificationLog: append-only audit record of every received notification
//   - SourcingRequest, OrderMapping: supplier-side workflows mirrored locally
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
