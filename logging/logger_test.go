package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewSubLoggerInheritsLevel(t *testing.T) {
	l := NewLogger(zerolog.InfoLevel, false, nil)
	sub := l.NewSubLogger("module", FilterService)
	assert.Equal(t, l.Level(), sub.Level())
}

func TestAddWriterUnstructured(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogger(zerolog.InfoLevel, false, nil)
	l.AddWriter(buf, UNSTRUCTURED)
	l.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestSetLevel(t *testing.T) {
	l := NewLogger(zerolog.InfoLevel, false, nil)
	l.SetLevel(zerolog.WarnLevel)
	assert.Equal(t, zerolog.WarnLevel, l.Level())
}
