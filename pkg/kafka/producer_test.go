package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestCompressionFromString(t *testing.T) {
	cases := map[string]kafkago.Compression{
		"gzip":   kafkago.Gzip,
		"SNAPPY": kafkago.Snappy,
		"lz4":    kafkago.Lz4,
		"zstd":   kafkago.Zstd,
		"":       kafkago.Snappy,
		"brotli": kafkago.Snappy,
	}
	for in, want := range cases {
		assert.Equal(t, want, CompressionFromString(in), in)
	}
}

func TestNewMessageHeaders(t *testing.T) {
	msg := NewMessage([]byte("clip.mp4"), []byte(`{}`), map[string]string{"event_type": "video.processed"})

	assert.Equal(t, []byte("clip.mp4"), msg.Key)
	assert.False(t, msg.Time.IsZero())
	assert.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("video.processed"), msg.Headers[0].Value)
}
