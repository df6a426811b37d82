package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "DEVICE", "STATUS")
	tbl.Flush()
	assert.Empty(t, buf.String())
}

func TestTable_Aligned(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "DEVICE", "STATUS")
	tbl.Row("r1", "ok")
	tbl.Row("core-router-2", "failed")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"DEVICE         STATUS",
		"------         ------",
		"r1             ok",
		"core-router-2  failed",
	}, lines)
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "A", "B").WithPrefix("  ")
	tbl.Row("1", "2")
	tbl.Flush()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "  "), "line %q missing prefix", line)
	}
}
