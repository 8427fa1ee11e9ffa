package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvInstanceID, "  api-7 ")
	assert.Equal(t, "api-7", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	assert.NotEmpty(t, GetID())
}
