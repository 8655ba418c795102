package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewRollbarLogger(log.New(buf, "", 0), &core.Config{TestMode: true, Debug: debug}), buf
}

func TestRollbarLogger_Format(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *RollbarLogger)
		want string
	}{
		{
			name: "message only",
			log:  func(l *RollbarLogger) { l.Info("server started") },
			want: "INFO server started\n",
		},
		{
			name: "error and fields",
			log: func(l *RollbarLogger) {
				l.Warn("resolver: fetching role failed",
					errors.New("role service down"),
					map[string]interface{}{"email": "awe@test.cd", "attempt": 1},
				)
			},
			want: "WARN resolver: fetching role failed: role service down attempt=1 email=awe@test.cd\n",
		},
		{
			name: "person",
			log: func(l *RollbarLogger) {
				l.Error("request failed", &identity.Identity{Email: "awe@test.cd"}, "extra")
			},
			want: "ERROR request failed person=awe@test.cd extra\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(false)
			tt.log(l)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRollbarLogger_Level(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l, buf = newTestLogger(true)
	l.Debug("shown", map[string]interface{}{"email": "awe@test.cd"})
	assert.Equal(t, "DEBUG shown email=awe@test.cd\n", buf.String())
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}
