// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AlreadyDownloaded is the message carried by skip outcomes.
const AlreadyDownloaded = "already downloaded"

// DownloadOutcome is the terminal result of one download attempt. The JSON
// field names double as the ledger line schema; only Identifier is
// required when reading older ledgers.
type DownloadOutcome struct {
	Identifier     string    `json:"identifier" yaml:"identifier"`
	Success        bool      `json:"success" yaml:"success"`
	Skipped        bool      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Format         Format    `json:"format,omitempty" yaml:"format,omitempty"`
	StoredPath     string    `json:"storedPath,omitempty" yaml:"stored_path,omitempty"`
	ByteSize       int64     `json:"byteSize,omitempty" yaml:"byte_size,omitempty"`
	Checksum       string    `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty" yaml:"error_message,omitempty"`
	ElapsedSeconds float64   `json:"elapsedSeconds,omitempty" yaml:"elapsed_seconds,omitempty"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
}

// IsSkip reports whether the outcome is the "already downloaded" signal:
// not a success and not an error.
func (o DownloadOutcome) IsSkip() bool {
	return o.Skipped && !o.Success
}

// IsFailure reports whether the outcome is a real error.
func (o DownloadOutcome) IsFailure() bool {
	return !o.Success && !o.Skipped
}
