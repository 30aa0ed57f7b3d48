package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// Used for settings read before config.Load runs, such as the log format.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
