// Package service runs the matching core: the per-book execution
// strategies (synchronous, pooled, dedicated), the Book that owns the
// active strategy and swaps it live, and the Market directory of books.
//
// Domain logic lives in domain/orderbook; this package only decides
// where and when it runs.
package service
