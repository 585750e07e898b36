package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracePolicy(t *testing.T) {
	cases := []struct {
		name                     string
		verbosity                int
		success                  bool
		wantSetup, wantExecution bool
	}{
		{"low verbosity never traces", 0, false, false, false},
		{"v3 passing keeps nothing", 3, true, false, false},
		{"v3 failing keeps execution only", 3, false, false, true},
		{"v4 passing keeps nothing", 4, true, false, false},
		{"v4 failing keeps setup and execution", 4, false, true, true},
		{"v5 passing keeps everything", 5, true, true, true},
		{"v5 failing keeps everything", 5, false, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			setup, execution := TracePolicy(c.verbosity, c.success)
			assert.Equal(t, c.wantSetup, setup)
			assert.Equal(t, c.wantExecution, execution)
		})
	}
}
