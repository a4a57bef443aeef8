package pps

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFMWriterEmitsHeaderThenEvents(t *testing.T) {
	var buf bytes.Buffer
	w := NewFMWriter(&buf)

	require.NoError(t, w.WritePPSEvent(1, 19200, 1700000000.123456))
	require.NoError(t, w.WritePPSEvent(2, 38400, 1700000001.123456))

	lines := readLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "#pps_index sample_index   unix_time", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "       1"))
	assert.True(t, strings.Contains(lines[1], "1700000000.123456"))
}

func TestBlockWriterEmitsHeaderThenTicks(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockWriter(&buf)

	require.NoError(t, w.WriteBlockTick(5, 1700000000.5))

	lines := readLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "#  block   unix_time", lines[0])
	assert.True(t, strings.Contains(lines[1], "1700000000.500000"))
}

func TestFMWriterRejectsBlockTick(t *testing.T) {
	var buf bytes.Buffer
	w := NewFMWriter(&buf)
	assert.Error(t, w.WriteBlockTick(1, 0))
}

func TestBlockWriterRejectsPPSEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockWriter(&buf)
	assert.Error(t, w.WritePPSEvent(1, 1, 0))
}

func readLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(buf.String()))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}
