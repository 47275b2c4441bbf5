package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainCache(t *testing.T) {
	t.Run("空缓存未命中", func(t *testing.T) {
		c := NewDomainCache(time.Minute)

		domains, fresh := c.Get()
		assert.Nil(t, domains)
		assert.False(t, fresh)
	})

	t.Run("写入后命中且新鲜", func(t *testing.T) {
		c := NewDomainCache(time.Minute)
		c.Set([]string{"temp.mail", "drop.box"})

		domains, fresh := c.Get()
		assert.Equal(t, []string{"temp.mail", "drop.box"}, domains)
		assert.True(t, fresh)
	})

	t.Run("过期后仍返回数据但标记不新鲜", func(t *testing.T) {
		c := NewDomainCache(time.Nanosecond)
		c.Set([]string{"temp.mail"})
		time.Sleep(time.Millisecond)

		domains, fresh := c.Get()
		assert.Equal(t, []string{"temp.mail"}, domains)
		assert.False(t, fresh)
	})

	t.Run("返回的切片是副本", func(t *testing.T) {
		c := NewDomainCache(time.Minute)
		c.Set([]string{"temp.mail"})

		domains, _ := c.Get()
		domains[0] = "mutated"

		again, _ := c.Get()
		assert.Equal(t, []string{"temp.mail"}, again)
	})
}
