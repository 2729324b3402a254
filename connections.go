/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/config"
	"github.com/suparena/blogstore/datastore/ddb"
	"github.com/suparena/blogstore/datastore/s3blob"
)

// Connection holds the store API clients for one credential.
type Connection struct {
	Table  ddb.API
	Blob   s3blob.API
	Region string
}

// Connector resolves a connection string to store API clients. An empty
// credential selects the connector's default.
type Connector interface {
	Connect(ctx context.Context, credential string) (*Connection, error)
}

// AWSConnector builds DynamoDB and S3 clients and pools them per credential.
// SDK-level retries are disabled so that the resilience executor is the only
// retry layer.
type AWSConnector struct {
	mu                sync.RWMutex
	defaultCredential string
	connections       map[string]*Connection
	logger            *zap.Logger
}

// NewAWSConnector creates a connector whose default credential is
// defaultCredential.
func NewAWSConnector(defaultCredential string, logger *zap.Logger) *AWSConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSConnector{
		defaultCredential: defaultCredential,
		connections:       make(map[string]*Connection),
		logger:            logger.Named("connector"),
	}
}

func (c *AWSConnector) Connect(ctx context.Context, credential string) (*Connection, error) {
	if credential == "" {
		credential = c.defaultCredential
	}

	c.mu.RLock()
	conn, exists := c.connections[credential]
	c.mu.RUnlock()
	if exists {
		return conn, nil
	}

	cred, err := config.ParseConnectionString(credential)
	if err != nil {
		return nil, err
	}
	conn, err = newConnection(ctx, cred)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.connections[credential]; ok {
		return existing, nil
	}
	c.connections[credential] = conn
	c.logger.Info("connected",
		zap.String("region", cred.Region),
		zap.String("endpoint", cred.Endpoint),
		zap.Bool("static_keys", cred.HasStaticKeys()))
	return conn, nil
}

// Len returns the number of pooled connections.
func (c *AWSConnector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.connections)
}

func newConnection(ctx context.Context, cred config.Credential) (*Connection, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cred.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cred.HasStaticKeys() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, cred.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	tableClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cred.Endpoint != "" {
			o.BaseEndpoint = aws.String(cred.Endpoint)
		}
	})
	blobClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cred.Endpoint != "" {
			o.BaseEndpoint = aws.String(cred.Endpoint)
		}
		o.UsePathStyle = cred.UsePathStyle
	})

	return &Connection{
		Table:  tableClient,
		Blob:   blobClient,
		Region: cred.Region,
	}, nil
}
