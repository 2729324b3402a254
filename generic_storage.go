/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/suparena/blogstore/registry"
)

// clientKey identifies one store client: a record type bound to a physical
// resource through a credential.
type clientKey struct {
	record     reflect.Type
	kind       registry.Kind
	resource   string
	credential string
}

func (k clientKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", typeIdentity(k.record), k.kind, k.resource, k.credential)
}

// typeIdentity names a type by import path. reflect.Type.String only uses
// the package name, so two packages' Post types would collide.
func typeIdentity(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// clientCache holds constructed table and blob clients. Construction may
// create the backing table or bucket, so concurrent first calls for the same
// key share one construction.
type clientCache struct {
	mu      sync.RWMutex
	clients map[clientKey]any
	group   singleflight.Group
}

func newClientCache() *clientCache {
	return &clientCache{
		clients: make(map[clientKey]any),
	}
}

// cachedClient returns the client for key, building it on first use. Failed
// builds are not cached.
func cachedClient[C any](ctx context.Context, cc *clientCache, key clientKey, build func(context.Context) (C, error)) (C, error) {
	cc.mu.RLock()
	existing, exists := cc.clients[key]
	cc.mu.RUnlock()
	if exists {
		return existing.(C), nil
	}

	v, err, _ := cc.group.Do(key.String(), func() (any, error) {
		cc.mu.RLock()
		existing, exists := cc.clients[key]
		cc.mu.RUnlock()
		if exists {
			return existing, nil
		}

		client, err := build(ctx)
		if err != nil {
			return nil, err
		}

		cc.mu.Lock()
		cc.clients[key] = client
		cc.mu.Unlock()
		return client, nil
	})
	if err != nil {
		var zero C
		return zero, err
	}
	return v.(C), nil
}

// Len returns the number of cached clients.
func (cc *clientCache) Len() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.clients)
}

// Resources lists the cached resource names for a record type.
func (cc *clientCache) Resources(record reflect.Type) []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	resources := make([]string, 0, len(cc.clients))
	for k := range cc.clients {
		if k.record == record {
			resources = append(resources, k.resource)
		}
	}
	return resources
}

func recordType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
