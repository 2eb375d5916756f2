package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsNormalize(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, Params{}.Normalize())
	assert.Equal(t, Params{Page: 3, Limit: MaxLimit}, Params{Page: 3, Limit: 1000}.Normalize())
	assert.Equal(t, 40, Params{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, Params{Page: -2, Limit: 5}.Offset())
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, Meta{Page: 1, Limit: 10, Total: 0, TotalPages: 0}, NewMeta(Params{Limit: 10}, 0))
	assert.Equal(t, Meta{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, NewMeta(Params{Page: 2, Limit: 10}, 21))
	assert.Equal(t, Meta{Page: 1, Limit: 10, Total: 20, TotalPages: 2}, NewMeta(Params{Page: 1, Limit: 10}, 20))
}
