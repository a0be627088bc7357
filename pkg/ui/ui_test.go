package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkgeo/pkg/geo"
)

func TestPrintRecords(t *testing.T) {
	SetColor(false)
	r, err := geo.NewRecord(55.75, 37.61, "https://img", "https://vk.com/albums1?z=photo1_2", "Red Square", time.Unix(1700000000, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintRecords(&buf, []geo.Record{r})
	out := buf.String()
	assert.Contains(t, out, "55.750000")
	assert.Contains(t, out, "2023-11-14 22:13:20")
	assert.Contains(t, out, "Red Square")

	buf.Reset()
	PrintRecordDetail(&buf, 0, r)
	assert.Contains(t, buf.String(), "https://vk.com/albums1?z=photo1_2")
}

func TestProgressDisplay(t *testing.T) {
	SetColor(false)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 4, false)

	p.Start("1")
	p.Complete("1", 3)
	p.Fail("2", errors.New("private"))
	assert.Equal(t, "[━━━━━━━━━━──────────] 2/4 • 3 locations • 1 failed", strings.TrimSpace(p.Line()))

	p.Finish()
	assert.Contains(t, buf.String(), "Processed 2 profiles, 3 locations")
	assert.Contains(t, buf.String(), "1 profiles failed")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m", formatDuration(61*time.Minute))
}
