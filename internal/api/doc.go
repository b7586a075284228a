// Package api implements the HTTP handlers for the task management API:
// account registration and login, session management, profile and avatar
// operations, and owner-scoped task CRUD.
//
// Handlers depend on the store and service interfaces rather than concrete
// implementations, keep error responses sanitized via MapErrorToStatusCode
// and GetSafeErrorMessage, and leave authentication to the middleware
// subpackage.
package api
