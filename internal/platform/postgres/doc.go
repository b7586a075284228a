// Package postgres implements the store interfaces on PostgreSQL.
//
// It uses database/sql over the pgx stdlib driver, maps PostgreSQL error
// codes onto the store sentinel errors, and embeds goose SQL migrations so
// the server can bring the schema up at startup.
package postgres
