package memorykv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tripsync/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := Open()

	assert.NoError(t, s.Set(ctx, "token", "abc"))
	v, err := s.Get(ctx, "token")
	assert.NoError(t, err)
	assert.Equal(t, "abc", v)

	assert.NoError(t, s.Delete(ctx, "token", "missing"))
	_, err = s.Get(ctx, "token")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.NoError(t, s.Close())
}
