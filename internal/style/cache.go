package style

import (
	"github.com/dgraph-io/ristretto/v2"
)

// Cache memoizes Render. Programs tend to print the same templates in loops,
// so repeated markup skips the scan.
type Cache struct {
	c *ristretto.Cache[string, string]
}

// NewCache creates a cache holding at most maxCostBytes of rendered output.
func NewCache(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Render returns the same result as the package-level Render.
func (c *Cache) Render(markup string) string {
	if c == nil {
		return Render(markup)
	}
	if out, ok := c.c.Get(markup); ok {
		return out
	}
	out := Render(markup)
	c.c.Set(markup, out, int64(len(markup)+len(out)))
	return out
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	if c != nil {
		c.c.Wait()
	}
}

func (c *Cache) Close() {
	if c != nil {
		c.c.Close()
	}
}
