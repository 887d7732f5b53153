// Package guard switches the binaries into test mode when imported from a
// test, so calling main never dials Redis or the market API.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DASHBOARD_TEST_MODE") == "" {
			_ = os.Setenv("DASHBOARD_TEST_MODE", "1")
		}
	})
}
