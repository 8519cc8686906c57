// Package core defines the shared language of the Folio system.
//
// This package contains:
//   - Domain entities (Stock, Asset, StockDaily, AssetField)
//   - Wire types exchanged by the asset API (StockAsset, StockAssetResponse)
//   - Service interfaces (Store)
//   - Configuration types (StoreConfig)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
