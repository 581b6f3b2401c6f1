package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "NAME", "TYPE", "NULLABLE")
	table.AddRow("id", "integer", "no")
	table.AddRow("description", "textlong", "yes")
	table.AddRow("rarity", "enum")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "NAME         TYPE      NULLABLE", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "───────────  ────────  "))
	assert.Equal(t, "id           integer   no", lines[2])
	assert.Equal(t, "description  textlong  yes", lines[3])
	assert.Equal(t, "rarity       enum      ", lines[4])
	assert.Equal(t, 3, table.Len())
}

func TestTable_MultibyteWidths(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "ID", "LABEL")
	table.AddRow("1", "Épée")
	table.AddRow("12", "x")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "1   Épée", lines[2])
	assert.Equal(t, "12  x", lines[3])
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true)
	table.AddRow("ignored")
	table.Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("id", "4")
	kv.AddRow("name", "Mira")
	kv.Render()

	assert.Equal(t, "id:   4\nname: Mira\n", buf.String())
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.Success("applied %d migration(s)", 1)
	p.Info("listening on %s", "localhost:3000")
	p.Warn("nothing to do")

	assert.Equal(t, "✓ applied 1 migration(s)\n→ listening on localhost:3000\n! nothing to do\n", buf.String())
}
