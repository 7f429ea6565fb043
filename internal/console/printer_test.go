package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Start("/ws")
	p.Deleted("/ws/dist")
	p.DryRun("/ws/lib")

	assert.Equal(t,
		"Starts to clean directories and files from /ws\n\n"+
			"[Delete] /ws/dist has been deleted\n"+
			"[Dry Run] /ws/lib will been deleted without '--dry-run'\n",
		buf.String())
}

func TestPrinterNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Deleted("/ws/dist")
	assert.NotContains(t, buf.String(), "\x1b[")
}
