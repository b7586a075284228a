// Package store provides abstractions for data persistence.
//
// It defines the interfaces implemented by the concrete storage backends
// (see internal/platform/postgres) together with the sentinel errors the
// handlers branch on. Keeping the interfaces here lets services and
// handlers depend on behavior rather than on a particular database.
package store
