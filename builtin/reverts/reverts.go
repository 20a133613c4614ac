// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a revert.
type Kind string

const (
	InvalidArgument     Kind = "InvalidArgument"
	LockNotExpired      Kind = "LockNotExpired"
	MaxVestableExceeded Kind = "MaxVestableExceeded"
	Unauthorized        Kind = "Unauthorized"
	InsufficientBalance Kind = "InsufficientBalance"
	OutOfRange          Kind = "OutOfRange"
)

// ErrRevert is returned when a call is rejected. The call leaves no state change behind.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Message() string {
	return e.message
}

func (e *ErrRevert) Error() string {
	return string(e.kind) + ": " + e.message
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return ve != nil
	}
	return false
}

// IsKind reports whether err is a revert of the given kind.
func IsKind(err error, kind Kind) bool {
	var ve *ErrRevert
	if errors.As(err, &ve) && ve != nil {
		return ve.kind == kind
	}
	return false
}
