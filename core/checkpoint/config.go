package checkpoint

// Config holds configuration for checkpoint persistence.
type Config struct {
	// Backend selects where checkpoints live: "file" or "object".
	Backend string `mapstructure:"backend" default:"file"`
	// Directory is the checkpoint directory for the file backend.
	Directory string `mapstructure:"directory" default:"./checkpoints"`
	// Prefix is the object key prefix for the object backend.
	Prefix string `mapstructure:"prefix" default:"checkpoints"`
}

const (
	BackendFile   = "file"
	BackendObject = "object"
)
