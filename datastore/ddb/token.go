/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"

	"github.com/suparena/blogstore/errors"
)

// encodeToken turns a LastEvaluatedKey into an opaque continuation token.
// Table keys are strings, so the key round-trips through a string map.
func encodeToken(lastKey map[string]types.AttributeValue) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	var key map[string]string
	if err := attributevalue.UnmarshalMap(lastKey, &key); err != nil {
		return "", errors.NewSerializationError("continuation token", err)
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return "", errors.NewSerializationError("continuation token", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeToken reverses encodeToken. A malformed token is a caller error.
func decodeToken(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	var key map[string]string
	if err := json.Unmarshal(raw, &key); err != nil || key[PartitionKeyAttribute] == "" {
		return nil, errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, errors.NewSerializationError("continuation token", err)
	}
	return av, nil
}
