package instance

import "os"

// GetID returns the publisher instance identifier. POS_INSTANCE_ID wins, then
// the hostname, then fallback.
func GetID(fallback string) string {
	if id := os.Getenv("POS_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
