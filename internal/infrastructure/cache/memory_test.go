package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	ms.Set("k", []byte("v"), time.Minute)
	got, ok := ms.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	ms.Delete("k")
	_, ok = ms.Get("k")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ms := NewMemoryStoreWithInterval(10 * time.Millisecond)
	defer ms.Close()

	ms.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := ms.Get("k")
	assert.False(t, ok)

	assert.Eventually(t, func() bool { return ms.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	buf := []byte("abc")
	ms.Set("k", buf, time.Minute)
	buf[0] = 'x'

	got, _ := ms.Get("k")
	assert.Equal(t, "abc", string(got))
}
