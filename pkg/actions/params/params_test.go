package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    time.Duration
		wantErr bool
	}{
		{name: "go duration", value: "2m", want: 2 * time.Minute},
		{name: "numeric string", value: "1.5", want: 1500 * time.Millisecond},
		{name: "float seconds", value: 5.0, want: 5 * time.Second},
		{name: "int seconds", value: 300, want: 5 * time.Minute},
		{name: "negative", value: -1, wantErr: true},
		{name: "garbage", value: "soon", wantErr: true},
		{name: "missing", value: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Duration(map[string]any{"duration": tt.value}, "duration")
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestTime(t *testing.T) {
	at, err := Time(map[string]any{"at": "2030-01-02T03:04:05+02:00"}, "at")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 1, 4, 5, 0, time.UTC), at)

	_, err = Time(map[string]any{"at": "tomorrow"}, "at")
	require.Error(t, err)
}

func TestStringSliceAndScalars(t *testing.T) {
	s, ok := StringSlice(map[string]any{"ids": []any{"a", 1, "b"}}, "ids")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, s)

	_, ok = StringSlice(map[string]any{}, "ids")
	assert.False(t, ok)

	assert.Equal(t, 3, Int(map[string]any{"n": 3.0}, "n", 1))
	assert.Equal(t, 1, Int(map[string]any{}, "n", 1))
	assert.True(t, Bool(map[string]any{"b": "true"}, "b"))
	assert.False(t, Bool(map[string]any{"b": 1}, "b"))
	assert.Equal(t, "x", String(map[string]any{}, "s", "x"))
}
