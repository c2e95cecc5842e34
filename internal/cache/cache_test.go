package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New[string](100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("creds", "value")
	v, ok := c.Get("creds")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	c.Delete("creds")
	_, ok = c.Get("creds")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c, err := New[int](100, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set("n", 1)
	assert.Eventually(t, func() bool {
		_, ok := c.Get("n")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}
