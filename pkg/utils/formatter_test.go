package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteCountSI(t *testing.T) {
	tests := []struct {
		bytes    int
		expected string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{999500, "999.5 kB"},
		{1500000, "1.5 MB"},
		{1000000000, "1.0 GB"},
		{1500000000000, "1.5 TB"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, ByteCountSI(tc.bytes), "bytes=%d", tc.bytes)
	}
}
