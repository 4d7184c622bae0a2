package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_Levels(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Init("production", "")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Init("production", "warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	Init("production", "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel(), "unknown level keeps the default")
}
