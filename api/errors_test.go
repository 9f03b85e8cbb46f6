package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/store/sqlite"
)

func TestErrorClassification(t *testing.T) {
	loadMissing := &engine.LoadError{Snapshot: "cycle policy", Err: fmt.Errorf("setting: %w", sqlite.ErrNotFound)}

	assert.True(t, api.IsNotFound(loadMissing))
	assert.False(t, api.IsClientError(loadMissing))

	assert.True(t, api.IsClientError(&factory.ValidationError{Fields: map[string]string{"x": "bad"}}))
	assert.True(t, api.IsClientError(fmt.Errorf("saving: %w", factory.ErrSalarySourceCycle)))
	assert.True(t, api.IsClientError(fmt.Errorf("sale: %w", sqlite.ErrDuplicate)))
	assert.True(t, api.IsClientError(engine.ErrFutureCycle))

	assert.False(t, api.IsClientError(&cycle.ConfigError{Field: "day", Value: 0, Reason: "out of range"}))
	assert.False(t, api.IsClientError(errors.New("disk full")))
	assert.False(t, api.IsNotFound(errors.New("disk full")))
}
