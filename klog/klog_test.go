package klog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureFansOutToMultipleWriters(t *testing.T) {
	var a, b bytes.Buffer
	Configure(&a, &b)
	defer Configure()

	For("test", 7, 3).Info("hello")

	require.Contains(t, a.String(), "hello")
	require.Contains(t, b.String(), "hello")
	require.Contains(t, a.String(), "subsystem=test")
	require.Contains(t, a.String(), "tid=7")
}
