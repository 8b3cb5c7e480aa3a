package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingReporter struct {
	captured int
}

func (r *countingReporter) CaptureError(err error, tags map[string]string) {
	r.captured++
}

type clearingReporter struct {
	countingReporter
	cleared int
}

func (r *clearingReporter) ClearError(tags map[string]string) {
	r.cleared++
}

func TestMultiReporter_ForwardsClearToRecoverers(t *testing.T) {
	plain := &countingReporter{}
	clearing := &clearingReporter{}
	m := multiReporter{plain, clearing}

	m.CaptureError(errors.New("save failed"), map[string]string{"component": "favourites"})
	m.ClearError(map[string]string{"component": "favourites"})

	assert.Equal(t, 1, plain.captured)
	assert.Equal(t, 1, clearing.captured)
	assert.Equal(t, 1, clearing.cleared)
}
