/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// transientStatus lists the store response codes worth retrying.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// httpStatusError is satisfied by smithy's transport/http ResponseError.
type httpStatusError interface {
	HTTPStatusCode() int
}

// IsTransient reports whether err is worth retrying: network timeouts,
// connection resets, throttling and 5xx store responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	var throttling *types.ThrottlingException
	if stderrors.As(err, &throughput) || stderrors.As(err, &requestLimit) ||
		stderrors.As(err, &internal) || stderrors.As(err, &throttling) {
		return true
	}

	var statusErr httpStatusError
	if stderrors.As(err, &statusErr) && transientStatus[statusErr.HTTPStatusCode()] {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "connection reset")
}
