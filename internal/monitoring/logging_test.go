package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("hello %d", 1)
	assert.Equal(t, []string{"hello 1"}, lines)

	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, lines, 1)
}

func TestEvery(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	logEvery := Every(3)
	for i := 0; i < 7; i++ {
		logEvery("read error: %s", "timeout")
	}
	assert.Equal(t, []string{
		"read error: timeout (x1)",
		"read error: timeout (x3)",
		"read error: timeout (x6)",
	}, lines)
}
