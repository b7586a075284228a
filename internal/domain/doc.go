// Package domain contains the core business entities of the task manager:
// users with their credentials and live session tokens, and the tasks they
// own. Entities validate themselves; persistence and transport concerns
// live elsewhere.
package domain
