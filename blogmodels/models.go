/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogmodels

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Post is a blog post, stored in a table partitioned by blog.
type Post struct {

	// Blog the post belongs to.
	// Required: true
	BlogID string `json:"BlogId" dynamodbav:"BlogId" validate:"required"`

	// Unique identifier for the post.
	// Required: true
	// Format: uuid
	ID strfmt.UUID `json:"Id" dynamodbav:"Id" validate:"required,uuid"`

	// Title of the post.
	// Required: true
	Title string `json:"Title" dynamodbav:"Title" validate:"required,max=200"`

	// Author handle.
	// Required: true
	Author string `json:"Author" dynamodbav:"Author" validate:"required"`

	// Markdown body.
	Body string `json:"Body,omitempty" dynamodbav:"Body,omitempty"`

	// tags
	Tags []string `json:"Tags,omitempty" dynamodbav:"Tags,omitempty"`

	// Timestamp when the post was created.
	// Required: true
	CreatedAt time.Time `json:"CreatedAt" dynamodbav:"CreatedAt" validate:"required"`

	// Timestamp when the post was published; zero while a draft.
	PublishedAt time.Time `json:"PublishedAt,omitempty" dynamodbav:"PublishedAt,omitempty"`
}

// NewPost creates a draft post with a fresh identifier.
func NewPost(blogID, author, title, body string) Post {
	return Post{
		BlogID:    blogID,
		ID:        strfmt.UUID(uuid.NewString()),
		Title:     title,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

func (p Post) GetPartitionKey() string { return p.BlogID }
func (p Post) GetRowKey() string       { return p.ID.String() }

func (p Post) Validate() error { return validate.Struct(p) }

// Published reports whether the post has been published.
func (p Post) Published() bool { return !p.PublishedAt.IsZero() }

// Comment is a reader comment, stored in a table partitioned by post.
type Comment struct {

	// Post the comment belongs to.
	// Required: true
	// Format: uuid
	PostID strfmt.UUID `json:"PostId" dynamodbav:"PostId" validate:"required,uuid"`

	// Unique identifier for the comment.
	// Required: true
	// Format: uuid
	ID strfmt.UUID `json:"Id" dynamodbav:"Id" validate:"required,uuid"`

	// Author handle.
	// Required: true
	Author string `json:"Author" dynamodbav:"Author" validate:"required"`

	// Comment text.
	// Required: true
	Body string `json:"Body" dynamodbav:"Body" validate:"required,max=4000"`

	// Timestamp when the comment was created.
	// Required: true
	CreatedAt time.Time `json:"CreatedAt" dynamodbav:"CreatedAt" validate:"required"`
}

// NewComment creates a comment on postID with a fresh identifier.
func NewComment(postID strfmt.UUID, author, body string) Comment {
	return Comment{
		PostID:    postID,
		ID:        strfmt.UUID(uuid.NewString()),
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

func (c Comment) GetPartitionKey() string { return c.PostID.String() }
func (c Comment) GetRowKey() string       { return c.ID.String() }

func (c Comment) Validate() error { return validate.Struct(c) }

// Image describes an uploaded image. It is stored as a JSON blob next to the
// image bytes.
type Image struct {

	// Unique identifier for the image.
	// Required: true
	// Format: uuid
	ID strfmt.UUID `json:"Id" validate:"required,uuid"`

	// Original file name.
	// Required: true
	FileName string `json:"FileName" validate:"required"`

	// content type
	ContentType string `json:"ContentType,omitempty"`

	// Public location of the image bytes.
	// Format: uri
	URL strfmt.URI `json:"Url,omitempty"`

	// width
	Width int `json:"Width,omitempty" validate:"gte=0"`

	// height
	Height int `json:"Height,omitempty" validate:"gte=0"`

	// Timestamp when the image was uploaded.
	// Required: true
	// Format: date-time
	UploadedAt strfmt.DateTime `json:"UploadedAt"`
}

// NewImage creates image metadata with a fresh identifier.
func NewImage(fileName, contentType string) Image {
	return Image{
		ID:          strfmt.UUID(uuid.NewString()),
		FileName:    fileName,
		ContentType: contentType,
		UploadedAt:  strfmt.DateTime(time.Now().UTC()),
	}
}

// BlobName is the conventional blob name for the image metadata.
func (i Image) BlobName() string {
	return "images/" + i.ID.String() + ".json"
}

func (i Image) Validate() error {
	if i.URL != "" && !strfmt.Default.Validates("uri", i.URL.String()) {
		return fmt.Errorf("invalid image url %q", i.URL)
	}
	return validate.Struct(i)
}
