/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suparena/blogstore/errors"
)

// Credential is a parsed connection string.
type Credential struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // Custom endpoint, e.g. LocalStack or MinIO
	UsePathStyle    bool
}

// HasStaticKeys reports whether the credential carries its own access keys.
// Without them the default AWS credential chain is used.
func (c Credential) HasStaticKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// ParseConnectionString parses "Key=Value" pairs separated by semicolons:
//
//	Region=eu-west-1;AccessKeyId=AKIA...;SecretAccessKey=...;Endpoint=http://localhost:4566;UsePathStyle=true
//
// Keys are case-insensitive. Region is required; a key without its secret
// is rejected.
func ParseConnectionString(s string) (Credential, error) {
	var cred Credential
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Credential{}, errors.NewConfigurationError("", fmt.Sprintf("malformed connection string segment %q", part))
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "region":
			cred.Region = value
		case "accesskeyid":
			cred.AccessKeyID = value
		case "secretaccesskey":
			cred.SecretAccessKey = value
		case "sessiontoken":
			cred.SessionToken = value
		case "endpoint":
			cred.Endpoint = value
		case "usepathstyle":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Credential{}, errors.NewConfigurationError("", fmt.Sprintf("invalid UsePathStyle value %q", value))
			}
			cred.UsePathStyle = b
		default:
			return Credential{}, errors.NewConfigurationError("", fmt.Sprintf("unknown connection string key %q", key))
		}
	}

	if cred.Region == "" {
		return Credential{}, errors.NewConfigurationError("", "connection string has no Region")
	}
	if (cred.AccessKeyID == "") != (cred.SecretAccessKey == "") {
		return Credential{}, errors.NewConfigurationError("", "connection string needs both AccessKeyId and SecretAccessKey")
	}
	return cred, nil
}
