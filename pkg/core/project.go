package core

// StoreConfig holds the asset store connection configuration.
type StoreConfig struct {
	Type string `koanf:"type"` // sqlite, postgres

	// File-based databases (SQLite)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options (e.g. sslmode)
	Options map[string]string `koanf:"options"`
}
