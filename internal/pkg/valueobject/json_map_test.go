package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Value(t *testing.T) {
	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	v, err = JSONMap{"flow": "confirm"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"flow":"confirm"}`, string(v.([]byte)))
}

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    JSONMap
		wantErr bool
	}{
		{name: "nil", in: nil, want: JSONMap{}},
		{name: "bytes", in: []byte(`{"remember":true}`), want: JSONMap{"remember": true}},
		{name: "string", in: `{"flow":"challenge"}`, want: JSONMap{"flow": "challenge"}},
		{name: "map", in: map[string]any{"a": "b"}, want: JSONMap{"a": "b"}},
		{name: "number", in: 42, wantErr: true},
		{name: "bad json", in: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got JSONMap
			err := got.Scan(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONMap_Getters(t *testing.T) {
	m := JSONMap{"flow": "confirm", "remember": true, "n": 1}

	assert.Equal(t, "confirm", m.GetString("flow"))
	assert.Empty(t, m.GetString("n"))
	assert.True(t, m.GetBool("remember"))
	assert.False(t, m.GetBool("missing"))
}
