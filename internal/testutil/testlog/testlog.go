// Package testlog routes gridlink logs through the test profile.
package testlog

import (
	"testing"

	"github.com/danmuck/gridlink/internal/logging"
	"github.com/danmuck/gridlink/internal/logs"
)

// Start configures test logging and marks where a test begins and ends in
// the shared log stream.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Debugf("testlog.Start test=%q", t.Name())
	t.Cleanup(func() {
		logs.Debugf("testlog.Done test=%q failed=%t", t.Name(), t.Failed())
	})
}
