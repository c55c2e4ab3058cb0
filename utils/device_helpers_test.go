package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateDevice_NoBackends(t *testing.T) {
	_, err := CreateDevice(nil)
	assert.Error(t, err)
}
