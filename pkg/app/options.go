// Package app defines the contracts shared by command line applications.
package app

import "github.com/kart-io/sentinel-rag/pkg/app/cliflag"

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete completes the options with defaults.
	Complete() error
	// Validate validates the options.
	Validate() error
}
