package server

const (
	DefaultPort          = "8000"
	DefaultLogLevel      = "info"
	DefaultTimeout       = "0s"
	DefaultModelsFile    = "models.json"
	DefaultMaxUploadSize = 32 << 20
)
