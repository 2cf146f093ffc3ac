// Package ports defines the interfaces the call bridge depends on.
// The bridge talks to abstractions; boundary layers and parsers in
// infrastructure implement them.
package ports
