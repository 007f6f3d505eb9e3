// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package errutil

import (
	"errors"

	"github.com/samber/oops"
)

// CauseCodeKey holds the code of the wrapped error after WrapCode.
const CauseCodeKey = "cause_code"

// WrapCode wraps err so that Code reports code. oops reports the deepest
// code in a chain, so the cause is hidden from oops.AsOops; its context is
// copied onto the new error and its code is kept under CauseCodeKey.
// errors.Is still matches sentinels anywhere below err.
func WrapCode(err error, code string, kv ...any) error {
	if err == nil {
		return nil
	}
	b := oops.Code(code)
	if inner, ok := oops.AsOops(err); ok {
		for k, v := range inner.Context() {
			b = b.With(k, v)
		}
		if c := inner.Code(); c != nil && c != "" {
			b = b.With(CauseCodeKey, c)
		}
	}
	return b.With(kv...).Wrap(&sealed{err: err})
}

// sealed exposes err to errors.Is but not to errors.As.
type sealed struct {
	err error
}

func (s *sealed) Error() string {
	return s.err.Error()
}

func (s *sealed) Is(target error) bool {
	return errors.Is(s.err, target)
}
