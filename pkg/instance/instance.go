package instance

import (
	"os"

	"github.com/angelmondragon/checkout-backend/pkg/env"
)

const EnvInstanceID = "CHECKOUT_INSTANCE_ID"

// GetID identifies this process in logs. It prefers the explicit instance id,
// then the host name, then a fixed default.
func GetID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "checkout-0"
}
