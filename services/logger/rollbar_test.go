package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/homeroom/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Info("dispatch done", core.LogFields{"sent": 2, "dispatch_id": "abc", "total": 3})
	logger.Error("delivery failed", errors.New("410 gone"))

	assert.Equal(t, "TEST : dispatch done\n"+
		"TEST : dispatch_id=abc sent=2 total=3\n"+
		"TEST : delivery failed\n"+
		"TEST : 410 gone\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	err := errors.New("boom")

	args := logger.prepare("msg", []interface{}{err, core.LogFields{"a": 1}})

	assert.Equal(t, []interface{}{"msg", err, map[string]interface{}{"a": 1}}, args)
}
