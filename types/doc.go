// Package types provides core types used across the voicebridge module.
// This package has ZERO dependencies on other voicebridge packages to avoid circular imports.
// All other packages should import types from here.
package types
