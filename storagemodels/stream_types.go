/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// StreamResult represents a single item or a terminal error from a streaming scan
type StreamResult[T any] struct {
	Item  T
	Error error
	Meta  StreamMeta
}

// StreamMeta contains metadata about a streamed item
type StreamMeta struct {
	Index      int64 // Position of the item in the overall stream
	PageNumber int   // Store page the item was read from (1-based)
}

// StreamOptions configures streaming behavior
type StreamOptions struct {
	BufferSize int   // Channel buffer size (default: 100)
	PageSize   int32 // Items requested per store call (default: 100)
}

// DefaultStreamOptions returns default streaming options
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 100,
		PageSize:   100,
	}
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		if size >= 0 {
			opts.BufferSize = size
		}
	}
}

// WithStreamPageSize sets the number of items requested per store call
func WithStreamPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		if size > 0 {
			opts.PageSize = size
		}
	}
}
