// Package types holds the identifiers, error codes, and wire-adjacent
// structs shared across every raleighsl engine package: object ids, errno
// values, plugin headers, and the master block layout. No engine package
// depends on another engine package's internals; they all depend on types.
package types

import "fmt"

// Errno is the engine-wide result code. The zero value, None, is success;
// every other value names a specific failure category from the resource,
// lookup, plugin, transaction, or medium families.
type Errno int

// Errno implements error so call sites can use errors.Is/fmt.Errorf("%w")
// instead of hand translating a C-style code at every boundary.
func (e Errno) Error() string {
	if s, ok := errnoNames[e]; ok {
		return s
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

// Ok reports whether e represents success.
func (e Errno) Ok() bool { return e == None }

const (
	None Errno = iota

	// Resource family: contention and allocation failures.
	NoMemory
	NoSpace
	DeviceBusy
	NotImplemented

	// Lookup family: the thing asked for does not exist or doesn't match.
	ObjectNotFound
	ObjectExists
	PluginNotFound
	PluginExists
	NotDirectory
	NotEmpty

	// Plugin family: a plugin category mismatch or a plugin-internal fault.
	WrongPluginType
	PluginNotAvailable
	InvalidArgument

	// Transaction family.
	TransactionNotFound
	TransactionRolledBack
	TransactionDontCommit
	TransactionCommitted
	TransactionTimeout

	// Medium family: on-disk layout errors.
	BadMasterMagic
	BadMasterChecksum
	CorruptedMasterBlock
	IOError
)

var errnoNames = map[Errno]string{
	None:                  "success",
	NoMemory:              "out of memory",
	NoSpace:               "out of space",
	DeviceBusy:            "device busy",
	NotImplemented:        "not implemented",
	ObjectNotFound:        "object not found",
	ObjectExists:          "object already exists",
	PluginNotFound:        "plugin not found",
	PluginExists:          "plugin already registered",
	NotDirectory:          "not a directory",
	NotEmpty:              "not empty",
	WrongPluginType:       "wrong plugin type",
	PluginNotAvailable:    "plugin not available",
	InvalidArgument:       "invalid argument",
	TransactionNotFound:   "transaction not found",
	TransactionRolledBack: "transaction rolled back",
	TransactionDontCommit: "transaction marked don't-commit",
	TransactionCommitted:  "transaction already committed",
	TransactionTimeout:    "transaction timed out",
	BadMasterMagic:        "bad master block magic",
	BadMasterChecksum:     "bad master block checksum",
	CorruptedMasterBlock:  "corrupted master block",
	IOError:               "i/o error",
}
