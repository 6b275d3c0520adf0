// Package flows registers the import wizard flows with the core registry.
// Import this package for its side effects.
package flows

// Each flow file uses init() to register itself.
