package config

import "strings"

// Version is reported by `clox version`.
// Can be set at build time using: -ldflags "-X github.com/funvibe/clox/internal/config.Version=..."
var Version = "0.1.0"

// ImageFileExt is the extension of compiled chunk images
const ImageFileExt = ".cloxb"

// ListingFileExtensions are all recognized assembler listing extensions
var ListingFileExtensions = []string{".yaml", ".yml"}

// SettingsFileName is looked up in the working directory and its parents
const SettingsFileName = "clox.yaml"

// VM limits
const (
	// StackMax is the fixed operand stack depth
	StackMax = 256

	// MaxShortConstants is the number of pool entries addressable by the
	// one-byte operand of OP_CONSTANT
	MaxShortConstants = 255

	// MaxLongConstants is the pool size addressable by the 24-bit operand
	// of OP_CONSTANT_LONG
	MaxLongConstants = 1 << 24
)

// Process exit codes (sysexits.h)
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// IsImageFile reports whether path names a compiled chunk image
func IsImageFile(path string) bool {
	return strings.HasSuffix(path, ImageFileExt)
}

// IsListingFile checks if a file has a recognized listing extension
func IsListingFile(path string) bool {
	for _, ext := range ListingFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimListingExt removes a listing extension, if any
func TrimListingExt(path string) string {
	for _, ext := range ListingFileExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
