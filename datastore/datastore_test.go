/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"errors"
	"testing"
)

type valueRecord struct{ pk, rk string }

func (r valueRecord) GetPartitionKey() string { return r.pk }
func (r valueRecord) GetRowKey() string       { return r.rk }

type pointerRecord struct{ pk, rk string }

func (r *pointerRecord) GetPartitionKey() string { return r.pk }
func (r *pointerRecord) GetRowKey() string       { return r.rk }
func (r *pointerRecord) Validate() error {
	if r.rk == "" {
		return errors.New("row key required")
	}
	return nil
}

type plainRecord struct{ Name string }

func TestSupportsTableRecord(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"value receiver", SupportsTableRecord[valueRecord](), true},
		{"pointer to value receiver", SupportsTableRecord[*valueRecord](), true},
		{"pointer receiver", SupportsTableRecord[pointerRecord](), true},
		{"pointer type", SupportsTableRecord[*pointerRecord](), true},
		{"plain struct", SupportsTableRecord[plainRecord](), false},
		{"map", SupportsTableRecord[map[string]any](), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("SupportsTableRecord() = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestAsTableRecord(t *testing.T) {
	v := valueRecord{pk: "a", rk: "b"}
	if r, ok := AsTableRecord(&v); !ok || r.GetPartitionKey() != "a" || r.GetRowKey() != "b" {
		t.Errorf("AsTableRecord(value) = %v, %v", r, ok)
	}

	p := pointerRecord{pk: "c", rk: "d"}
	if r, ok := AsTableRecord(&p); !ok || r.GetRowKey() != "d" {
		t.Errorf("AsTableRecord(pointer receiver) = %v, %v", r, ok)
	}

	pp := &pointerRecord{pk: "e", rk: "f"}
	if r, ok := AsTableRecord(&pp); !ok || r.GetPartitionKey() != "e" {
		t.Errorf("AsTableRecord(pointer type) = %v, %v", r, ok)
	}

	var nilPtr *pointerRecord
	if _, ok := AsTableRecord(&nilPtr); ok {
		t.Error("AsTableRecord should reject a nil pointer record")
	}

	plain := plainRecord{Name: "x"}
	if _, ok := AsTableRecord(&plain); ok {
		t.Error("AsTableRecord should reject a plain struct")
	}
}

func TestAsValidator(t *testing.T) {
	p := pointerRecord{pk: "a"}
	validator, ok := AsValidator(&p)
	if !ok {
		t.Fatal("expected pointerRecord to be a Validator")
	}
	if err := validator.Validate(); err == nil {
		t.Error("expected validation error for empty row key")
	}

	v := valueRecord{}
	if _, ok := AsValidator(&v); ok {
		t.Error("valueRecord does not implement Validator")
	}
}
