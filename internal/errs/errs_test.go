package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMsg(t *testing.T) {
	assert.Contains(t, Msg(ProvidePaths, "restore", "restore"), "cellar restore runs/s1.bam")
	assert.Contains(t, Msg(ExtAllowAndDeny), "cannot use --ext with --exclude-ext")
	assert.Equal(t, "UNKNOWN", Msg(Code("UNKNOWN")))
}
