package relay

// Form defaults applied when a /chat request leaves a generation parameter out.
const (
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 512
	DefaultTopP        = 1.0
)

// DefaultImageMimeType is used for attachments uploaded without a media type.
const DefaultImageMimeType = "image/jpeg"

// ErrorPrefix starts the in-band fragment emitted when the upstream call fails.
const ErrorPrefix = "Error: "
