// Package guard marks the process as running under test when linked into a
// test binary without the top-level testing package.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("USAGEREG_TEST_MODE") == "" {
			_ = os.Setenv("USAGEREG_TEST_MODE", "1")
		}
	})
}
