// Package catalog contains the local catalog bounded context: the products,
// variants and category mappings that mirror a supplier's catalog.
//
// Key concepts:
//   - Product: a locally sellable item, optionally linked to a supplier product id
//   - Variant: a sellable variant with absolute stock and a derived availability status
//   - CategoryMapping: supplier category -> internal category used to materialize staged entries
//   - UnmappedCategory: counter of supplier categories seen without a mapping
//   - ChangeNotice: user-facing record of a supplier-driven product change
package catalog
