package resource

import (
	"context"
	"sync"
)

type CatalogStub struct {
	mu        sync.RWMutex
	resources map[int]Resource
	projects  map[int]string
}

func NewCatalogStub(resources ...Resource) *CatalogStub {
	stub := &CatalogStub{
		resources: make(map[int]Resource),
		projects:  make(map[int]string),
	}
	for _, r := range resources {
		stub.resources[r.Id] = r
	}
	return stub
}

func (c *CatalogStub) AddProject(id int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects[id] = name
}

func (c *CatalogStub) Get(ctx context.Context, id int) (Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resources[id]
	if !ok {
		return Resource{}, ErrResourceNotFound
	}
	return r, nil
}

func (c *CatalogStub) GetMany(ctx context.Context, ids []int) (map[int]Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[int]Resource, len(ids))
	for _, id := range ids {
		if r, ok := c.resources[id]; ok {
			result[id] = r
		}
	}
	return result, nil
}

func (c *CatalogStub) ProjectNames(ctx context.Context, ids []int) (map[int]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make(map[int]string, len(ids))
	for _, id := range ids {
		if name, ok := c.projects[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}
