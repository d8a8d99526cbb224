// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/kulpreet/libbitcoin-mvcc-database/fault"
)

var (
	ErrExistsOne   = fault.ExistsError("exists one")
	ErrExistsTwo   = fault.ExistsError("exists two")
	ErrInvalidOne  = fault.InvalidError("invalid one")
	ErrInvalidTwo  = fault.InvalidError("invalid two")
	ErrNotFoundOne = fault.NotFoundError("not found one")
	ErrNotFoundTwo = fault.NotFoundError("not found two")
	ErrProcessOne  = fault.ProcessError("process one")
	ErrProcessTwo  = fault.ProcessError("process two")
	ErrCapacityOne = fault.CapacityError("capacity one")
	ErrConflictOne = fault.ConflictError("conflict one")
)

// test that various error kinds can be subclassed
func TestClassification(t *testing.T) {
	errorList := []struct {
		err      error
		exists   bool
		invalid  bool
		notFound bool
		process  bool
		capacity bool
		conflict bool
	}{
		{ErrExistsOne, true, false, false, false, false, false},
		{ErrExistsTwo, true, false, false, false, false, false},
		{ErrInvalidOne, false, true, false, false, false, false},
		{ErrInvalidTwo, false, true, false, false, false, false},
		{ErrNotFoundOne, false, false, true, false, false, false},
		{ErrNotFoundTwo, false, false, true, false, false, false},
		{ErrProcessOne, false, false, false, true, false, false},
		{ErrProcessTwo, false, false, false, true, false, false},
		{ErrCapacityOne, false, false, false, false, true, false},
		{ErrConflictOne, false, false, false, false, false, true},
		{fault.ErrNoMoreObjects, false, false, false, false, true, false},
		{fault.ErrLatchConflict, false, false, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrExists(err) != e.exists {
			t.Errorf("%d: expected 'exists' == %v for err = %v", i, e.exists, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrProcess(err) != e.process {
			t.Errorf("%d: expected 'process' == %v for err = %v", i, e.process, err)
		}
		if fault.IsErrCapacity(err) != e.capacity {
			t.Errorf("%d: expected 'capacity' == %v for err = %v", i, e.capacity, err)
		}
		if fault.IsErrConflict(err) != e.conflict {
			t.Errorf("%d: expected 'conflict' == %v for err = %v", i, e.conflict, err)
		}
	}
}
