package sink

// Config holds configuration for the event stream.
type Config struct {
	// Format is "xml" (Splunk streaming mode) or "text".
	Format string `mapstructure:"format" default:"xml"`
	// Output is "stdout" or a file path that events are appended to.
	Output string `mapstructure:"output" default:"stdout"`
	// SourceType is written on every xml event.
	SourceType string `mapstructure:"source_type" default:"sharepoint:inventory"`
}
