package codec_test

import (
	"testing"

	"github.com/Watson1978/alba/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "json", codec.JSON{}.Name())
	assert.Equal(t, "msgpack", codec.MsgPack{}.Name())
	assert.Equal(t, "cbor", codec.CBOR{}.Name())
}

func TestDefaultIsJSON(t *testing.T) {
	assert.Equal(t, "json", codec.Default.Name())
}

func TestRoundTrip(t *testing.T) {
	codecs := []codec.Codec{codec.JSON{}, codec.MsgPack{}, codec.CBOR{}}
	in := map[string]any{"id": "1", "title": "Hello"}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Marshal(in)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, c.Unmarshal(b, &out))
			assert.Equal(t, "1", out["id"])
			assert.Equal(t, "Hello", out["title"])
		})
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out map[string]any
	assert.Error(t, codec.JSON{}.Unmarshal([]byte("{"), &out))
}
