package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 123e6, time.UTC)
	data, err := Encode(Entry{Content: []byte("# Xin chào"), Timestamp: ts})
	require.NoError(t, err)

	entry, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "# Xin chào", string(entry.Content))
	assert.True(t, ts.Equal(entry.Timestamp))
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "garbage"},
		{"truncated", `{"content":"aGVs`},
		{"bad base64", `{"content":"!!!notbase64","timestamp":1}`},
		{"missing timestamp", `{"content":"aGVsbG8="}`},
		{"wrong timestamp type", `{"content":"aGVsbG8=","timestamp":"yesterday"}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFresh(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	assert.True(t, Fresh(now, now, ValidityWindow))
	assert.True(t, Fresh(now.Add(-ValidityWindow+time.Second), now, ValidityWindow))
	assert.False(t, Fresh(now.Add(-ValidityWindow), now, ValidityWindow))
	assert.False(t, Fresh(now.Add(-4*24*time.Hour), now, ValidityWindow))
}

func TestApply(t *testing.T) {
	o := Apply()
	assert.Equal(t, ValidityWindow, o.Window)
	assert.NotNil(t, o.Now)

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o = Apply(WithClock(func() time.Time { return fixed }), WithWindow(time.Minute))
	assert.Equal(t, time.Minute, o.Window)
	assert.Equal(t, fixed, o.Now())
	assert.True(t, o.Fresh(fixed.Add(-30*time.Second)))
	assert.False(t, o.Fresh(fixed.Add(-time.Minute)))
}
