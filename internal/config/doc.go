// Package config loads kiosk's TOML configuration.
//
// Load resolves the file (explicit path, ~/.config/kiosk/config.toml, then
// ./kiosk.toml), decodes it over Default(), normalizes each section, and
// validates the result. Paths come back expanded and absolute; playlist
// sources that are http(s) URLs are left untouched.
package config
