// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accessor_test

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
)

// TestMain initialises the bitmark-inc/logger package once per test
// binary; logger.New panics if Initialise was never called.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "accessor-logger-test")
	if err != nil {
		panic(err)
	}

	if err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "test.log",
		Size:      1048576,
		Count:     10,
	}); err != nil {
		panic(err)
	}

	code := m.Run()
	logger.Finalise()
	os.RemoveAll(dir)
	os.Exit(code)
}
