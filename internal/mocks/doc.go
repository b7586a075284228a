// Package mocks provides shared test doubles for the store and service
// interfaces. The defaults behave like small in-memory implementations;
// function fields override individual methods when a test needs to force a
// specific result or error.
package mocks
