package instance

import (
	"os"

	"github.com/compunet/storefront/pkg/env"
)

// GetID returns the identifier of the running process, preferring the
// platform dyno name over the host name.
func GetID() string {
	if id := env.First("DYNO", "STOREFRONT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "storefront-0"
}
