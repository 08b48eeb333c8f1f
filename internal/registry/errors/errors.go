package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized     = fmt.Errorf("not authorized")
	ErrInvalidTransition = fmt.Errorf("invalid transition")
	ErrCandidateNotFound = fmt.Errorf("candidate not found")
	ErrEntryNotFound     = fmt.Errorf("entry not found")
	ErrCommentNotFound   = fmt.Errorf("comment not found")
	ErrAccountNotFound   = fmt.Errorf("account not found")
	ErrEmptyText         = fmt.Errorf("empty text")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrConflict          = fmt.Errorf("concurrent modification")
	ErrUnauthenticated   = fmt.Errorf("unauthenticated")
)

// Kind names surfaced to callers alongside every rejected operation.
const (
	KindNotAuthorized     = "NotAuthorized"
	KindInvalidTransition = "InvalidTransition"
	KindCandidateNotFound = "CandidateNotFound"
	KindEntryNotFound     = "EntryNotFound"
	KindCommentNotFound   = "CommentNotFound"
	KindAccountNotFound   = "AccountNotFound"
	KindEmptyText         = "EmptyText"
	KindInvalidInput      = "InvalidInput"
	KindDuplicate         = "Duplicate"
	KindConflict          = "Conflict"
	KindUnauthenticated   = "Unauthenticated"
	KindInternal          = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotAuthorized, KindNotAuthorized},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrCandidateNotFound, KindCandidateNotFound},
	{ErrEntryNotFound, KindEntryNotFound},
	{ErrCommentNotFound, KindCommentNotFound},
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrEmptyText, KindEmptyText},
	{ErrInvalidInput, KindInvalidInput},
	{ErrDuplicate, KindDuplicate},
	{ErrConflict, KindConflict},
	{ErrUnauthenticated, KindUnauthenticated},
}

// KindOf returns the taxonomy name of err, or KindInternal when err does not
// wrap any registry sentinel.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
