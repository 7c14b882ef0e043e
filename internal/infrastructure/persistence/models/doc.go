// Package models contains GORM persistence models. Domain entities carry no
// ORM tags; each model converts to and from its domain type.
//
//   - base.go: shared columns (BaseModel, AggregateModel)
//   - trade.go: orders, order lines, tracking events, addresses
//   - delivery.go: delivery modes and zones
//   - catalog.go: products and variants with their stock and prices
package models
