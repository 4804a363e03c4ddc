// Package services provides the shared error taxonomy and context annotations
// used across pipeline stages. Stage failures are tagged with sentinel markers
// so callers can distinguish configuration mistakes from external tool
// failures without parsing messages.
package services
