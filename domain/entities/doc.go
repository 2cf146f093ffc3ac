// Package entities provides the core domain types of the call bridge:
// typed values, signatures, registered functions, lifecycle phases and
// the descriptions a machine publishes about itself.
package entities
