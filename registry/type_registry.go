/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// recordNames maps a Go record type to the name used in metric names and
// log fields. Unregistered types fall back to their reflected type name.
var (
	recordNames = make(map[reflect.Type]string)
	mu          sync.RWMutex
)

// RegisterRecordName associates record type T with a display name.
// It panics if T is already registered under a different name.
func RegisterRecordName[T any](name string) {
	t := recordType[T]()

	mu.Lock()
	defer mu.Unlock()
	if existing, ok := recordNames[t]; ok && existing != name {
		panic(fmt.Sprintf("type registry: %s already registered as %q", t, existing))
	}
	recordNames[t] = name
}

// RecordTypeName returns the display name of record type T.
func RecordTypeName[T any]() string {
	t := recordType[T]()

	mu.RLock()
	name, ok := recordNames[t]
	mu.RUnlock()
	if ok {
		return name
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// recordType returns the element type of T, so T and *T share a name.
func recordType[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
