// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// CapacityError marks pool/store exhaustion: no free object and the
// size limit has been reached.
type CapacityError GenericError

// ConflictError marks an MVTO latch CAS failure or a version chain with
// no safely readable attachment point.
type ConflictError GenericError

// common errors
var (
	ErrAlreadyInitialised   = InvalidError("already initialised")
	ErrInvalidStructPointer = InvalidError("configuration target is not a pointer to struct")
	ErrNotActive            = InvalidError("transaction context is not active")
	ErrNotLatchHolder       = InvalidError("caller does not hold the latch")
	ErrNotCommitted         = InvalidError("transaction context is not committed")
	ErrJsonParseFail        = ProcessError("parse to json failed")
	ErrUnmarshalTextFail    = ProcessError("unmarshal text failed")

	ErrNotFoundConfigFile   = NotFoundError("config file is not found")
	ErrSlotNotFound         = NotFoundError("slot not found in index")
	ErrInvalidLoggerChannel = InvalidError("invalid logger channel")

	ErrNoMoreObjects = CapacityError("object pool has no more objects to hand out")

	ErrLatchConflict     = ConflictError("latch is held by another transaction")
	ErrNoReadableVersion = ConflictError("no visible and readable version in chain")
	ErrWriteReadConflict = ConflictError("writer timestamp is below an existing read timestamp")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e CapacityError) Error() string { return string(e) }
func (e ConflictError) Error() string { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrCapacity(e error) bool { _, ok := e.(CapacityError); return ok }
func IsErrConflict(e error) bool { _, ok := e.(ConflictError); return ok }
