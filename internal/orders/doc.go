// Package orders generates dummy e-commerce orders for seeding the
// spreadsheet the query workflow reads.
package orders
