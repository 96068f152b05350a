package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "6.0 KB", FormatSize(6144))
	assert.Equal(t, "50.0 MB", FormatSize(52428800))
	assert.Equal(t, "2.00 GB", FormatSize(2*1024*1024*1024))
}
