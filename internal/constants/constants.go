// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Ledger format constants
const (
	// DateLayout is the on-disk format of the Date column (YYYY-MM-DD)
	DateLayout = "2006-01-02"

	// TimeLayout is the on-disk format of the Time column (24-hour HH:MM:SS)
	TimeLayout = "15:04:05"

	// ExportDateLayout is the date stamp used in exported file names
	ExportDateLayout = "20060102"

	// ExportFilePrefix is the prefix of exported ledger files
	ExportFilePrefix = "attendance_log_"
)

// Ledger column names, in canonical order
const (
	ColumnName   = "Name"
	ColumnDate   = "Date"
	ColumnTime   = "Time"
	ColumnStatus = "Status"
)

// LedgerColumns lists the canonical ledger header
var LedgerColumns = []string{ColumnName, ColumnDate, ColumnTime, ColumnStatus}

// Face matching constants
const (
	// DefaultVerifyThreshold is the default maximum cosine distance for two faces
	// to be considered the same person. Lower values = stricter matching
	DefaultVerifyThreshold = 0.5

	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1920
)

// Upload constants
const (
	// MaxUploadSize is the maximum accepted size of an uploaded image (20 MB)
	MaxUploadSize = 20 << 20
)

// Storage defaults
const (
	// DefaultFacesDir is where reference images are stored, one file per identity
	DefaultFacesDir = "faces"

	// DefaultLedgerFile is the default CSV ledger path
	DefaultLedgerFile = "attendance.csv"

	// TrashDirName holds images staged for deletion inside the faces directory
	TrashDirName = ".trash"
)
