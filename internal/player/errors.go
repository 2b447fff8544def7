package player

import "errors"

var (
	// ErrConfigLoadFailed marks a session whose playlist could not be loaded.
	ErrConfigLoadFailed = errors.New("config load failed")
	// ErrEmptyPlaylist marks a session whose playlist loaded with no slides.
	ErrEmptyPlaylist = errors.New("playlist is empty")
)

// ErrorMessagePrefix precedes the load failure text on the error view.
const ErrorMessagePrefix = "Error loading configuration: "
