// Package domain defines the core reaction types and the store contracts.
//
// Concept-oriented files (reaction.go, store.go, errors.go) hold shared types and
// consumer-side interfaces. No storage or transport code lives here.
package domain
