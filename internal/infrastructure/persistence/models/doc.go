// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain and FromDomain.
//
// Structure:
//   - base.go: shared columns and JSON column helpers
//   - catalog.go: local products, variants, category mappings and change notices
//   - integration.go: staged supplier entries, notification log, sourcing, orders and tokens
package models
