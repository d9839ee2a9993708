package api

import (
	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/archive"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RecordsResponse is the JSON form of an archive query
type RecordsResponse struct {
	Version uint32   `json:"version"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ImportResponse describes an accepted upload
type ImportResponse struct {
	Capture *archive.Capture `json:"capture"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // required for uploads and deletes when set

	AllowedOrigins []string
	MaxUploadSize  int64 // bytes, defaults to DefaultMaxUploadSize

	Logger *logrus.Entry
}

// DefaultMaxUploadSize bounds uploaded UF2 streams
const DefaultMaxUploadSize = 64 << 20

// ArchiveStore defines the archive operations the API serves
type ArchiveStore interface {
	Import(name string, stream []byte) (*archive.Capture, error)
	Captures() ([]*archive.Capture, error)
	Capture(id string) (*archive.Capture, error)
	Raw(id string) ([]byte, error)
	DeleteCapture(id string) error
	Records(q archive.Query) (*archive.RecordSet, error)
	Stats() (*archive.Stats, error)
}
