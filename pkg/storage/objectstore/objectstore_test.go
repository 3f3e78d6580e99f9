package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviders(t *testing.T) {
	_, err := New(Config{Provider: "gcs", Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported object store provider")

	_, err = New(Config{Provider: "minio", Endpoint: "localhost:9000"})
	require.Error(t, err)

	cl, err := New(Config{Provider: "s3", Endpoint: "localhost:9000", Bucket: "processed"})
	require.NoError(t, err)
	require.NoError(t, cl.Close())
}
