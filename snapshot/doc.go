// Package snapshot saves the resting orders of every book to disk and
// loads them back, so a restarted server resumes with the same books.
//
// A snapshot is taken per book under its match guard. It is consistent
// within a book, not across books.
package snapshot
