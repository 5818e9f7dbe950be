package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLockConfig(t *testing.T) {
	assert.Equal(t, LockConfig{TTL: 2 * time.Minute}, DefaultLockConfig())
}
