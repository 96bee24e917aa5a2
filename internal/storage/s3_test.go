// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	put     []*s3.PutObjectInput
	deleted []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = append(f.put, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestNew_Unconfigured(t *testing.T) {
	c, err := New("", "", "", "", "", "")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New("http://localhost:9000", "", "key", "secret", "", "")
	require.NoError(t, err)
	assert.Nil(t, c, "bucket is required")
}

func TestNew_Configured(t *testing.T) {
	c, err := New("http://localhost:9000/", "", "key", "secret", "blogicum", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "blogicum", c.Bucket())
	assert.Equal(t, "http://localhost:9000/blogicum/img/a.png", c.FileURL("img/a.png"))
}

func TestFileURL(t *testing.T) {
	c := &Client{bucket: "b", endpoint: "http://s3", publicURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/img/x.jpg", c.FileURL("img/x.jpg"))
	assert.Equal(t, "", c.FileURL(""))

	var none *Client
	assert.Equal(t, "", none.FileURL("img/x.jpg"))
}

func TestImageKey(t *testing.T) {
	key, err := ImageKey("image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "img/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	_, err = ImageKey("text/html")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestUploadImage(t *testing.T) {
	fake := &fakeS3{}
	c := &Client{s3: fake, bucket: "blogicum", endpoint: "http://s3"}

	key, err := c.UploadImage(context.Background(), "image/jpeg", strings.NewReader("data"), 4)
	require.NoError(t, err)
	require.Len(t, fake.put, 1)

	in := fake.put[0]
	assert.Equal(t, "blogicum", aws.ToString(in.Bucket))
	assert.Equal(t, key, aws.ToString(in.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(in.ContentType))
	assert.Equal(t, s3types.ObjectCannedACLPublicRead, in.ACL)
}

func TestUploadImage_Errors(t *testing.T) {
	c := &Client{s3: &fakeS3{}, bucket: "b"}
	_, err := c.UploadImage(context.Background(), "application/pdf", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	boom := errors.New("boom")
	c = &Client{s3: &fakeS3{err: boom}, bucket: "b"}
	_, err = c.UploadImage(context.Background(), "image/gif", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, boom)
}

func TestDelete(t *testing.T) {
	fake := &fakeS3{}
	c := &Client{s3: fake, bucket: "b"}

	require.NoError(t, c.Delete(context.Background(), "img/a.png"))
	require.NoError(t, c.Delete(context.Background(), "../secret"))
	require.NoError(t, c.Delete(context.Background(), "img/../other"))
	assert.Equal(t, []string{"img/a.png"}, fake.deleted)
}
