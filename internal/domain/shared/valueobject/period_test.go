package valueobject

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	t.Run("parses canonical token", func(t *testing.T) {
		p, err := ParsePeriod("2025-08")
		require.NoError(t, err)
		assert.Equal(t, 2025, p.Year())
		assert.Equal(t, time.August, p.Month())
		assert.Equal(t, "2025-08", p.String())
	})

	t.Run("rejects malformed tokens", func(t *testing.T) {
		for _, token := range []string{"", "2025", "2025-8", "2025-13", "2025-00", "08-2025", "2025/08"} {
			_, err := ParsePeriod(token)
			assert.Error(t, err, "token %q should be rejected", token)
		}
	})
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, "2024-01", p.String())

	_, err = NewPeriod(123, time.January)
	assert.Error(t, err)

	_, err = NewPeriod(2024, time.Month(13))
	assert.Error(t, err)
}

func TestPeriod_Bounds(t *testing.T) {
	p, _ := ParsePeriod("2025-02")
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.February, p.End().Month())
	assert.Equal(t, 28, p.End().Day())
}

func TestPeriod_Navigation(t *testing.T) {
	p, _ := ParsePeriod("2025-12")
	assert.Equal(t, "2026-01", p.Next().String())
	assert.Equal(t, "2025-11", p.Previous().String())
}

func TestPeriod_Ordering(t *testing.T) {
	a, _ := ParsePeriod("2025-08")
	b, _ := ParsePeriod("2025-09")
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(b))
}

func TestPeriod_JSON(t *testing.T) {
	p, _ := ParsePeriod("2025-08")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"2025-08"`, string(data))

	var decoded Period
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, p.Equals(decoded))

	var bad Period
	assert.Error(t, json.Unmarshal([]byte(`"2025-8"`), &bad))
}

func TestPeriod_Scan(t *testing.T) {
	var p Period
	require.NoError(t, p.Scan("2025-08"))
	assert.Equal(t, "2025-08", p.String())

	require.NoError(t, p.Scan([]byte("2024-01")))
	assert.Equal(t, "2024-01", p.String())

	assert.Error(t, p.Scan(202508))
}
