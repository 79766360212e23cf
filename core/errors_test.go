package core_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/sanaa/core"
)

func TestErrors(t *testing.T) {
	notFound := core.NewNotFoundError("course not found")
	conflict := core.NewConflictError("already enrolled")

	assert.True(t, core.IsNotFound(errors.Wrap(notFound, "getting course")))
	assert.False(t, core.IsNotFound(conflict))
	assert.True(t, core.IsConflict(errors.WithStack(conflict)))
	assert.False(t, core.IsConflict(nil))

	assert.True(t, core.IsShutdown(errors.Wrap(core.NewShutdownError("integrity"), "ctx")))
	assert.False(t, core.IsShutdown(notFound))

	verr := core.NewValidationError(nil, core.FieldError{Field: "url", Error: "not an uploaded image URL"})
	assert.EqualError(t, verr, "url: not an uploaded image URL")
	assert.EqualError(t, core.NewValidationError(errors.New("boom")), "boom")

	rl := &core.RateLimitError{Limit: 5, ResetAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.EqualError(t, rl, "rate limit of 5 calls exceeded, try again after 2026-01-02T03:04:05Z")
}

func TestStoreError(t *testing.T) {
	assert.NoError(t, core.NewStoreError(nil, "inserting user"))

	driverErr := errors.New("connection refused")
	err := core.NewStoreError(driverErr, "inserting user")
	assert.EqualError(t, err, "inserting user: connection refused")
	assert.True(t, errors.Is(err, driverErr))
	assert.False(t, core.IsNotFound(err))
	_, ok := errors.Cause(errors.Wrap(err, "creating user")).(*core.StoreError)
	assert.True(t, ok, "Cause stops at the store error")
}
