package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCache(30 * time.Second).WithClock(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "users", [][]string{{"Gmail ID"}, {"a@example.com"}})

	got, ok := c.Get(ctx, "users")
	assert.True(t, ok)
	assert.Equal(t, [][]string{{"Gmail ID"}, {"a@example.com"}}, got)

	now = now.Add(31 * time.Second)
	_, ok = c.Get(ctx, "users")
	assert.False(t, ok)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	values := [][]string{{"Message"}, {"hello"}}
	c.Set(ctx, "announcements", values)
	values[1][0] = "mutated"

	got, _ := c.Get(ctx, "announcements")
	got[0][0] = "changed"

	again, _ := c.Get(ctx, "announcements")
	assert.Equal(t, [][]string{{"Message"}, {"hello"}}, again)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "questions", [][]string{{"Class"}})
	c.Delete(ctx, "questions")

	_, ok := c.Get(ctx, "questions")
	assert.False(t, ok)
}

func TestMemoryCacheDisabledWithZeroTTL(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	c.Set(ctx, "users", [][]string{{"Gmail ID"}})
	_, ok := c.Get(ctx, "users")
	assert.False(t, ok)
}
