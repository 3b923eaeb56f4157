package oss

import (
	"context"
	"fmt"
	"time"

	alioss "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
)

// metaHashKey is the user-metadata field holding the blake3 content hash.
// The SDK prefixes it with x-oss-meta- on the wire.
const metaHashKey = "blake3"

type implClient struct {
	bucket *alioss.Bucket
}

// NewAliyun creates a Client backed by an Aliyun OSS bucket
func NewAliyun(cfg config.OSSConfig) (Client, error) {
	client, err := alioss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	return &implClient{bucket: bucket}, nil
}

func (c *implClient) Put(ctx context.Context, localPath, key, contentHash string) error {
	if err := c.bucket.PutObjectFromFile(key, localPath, alioss.Meta(metaHashKey, contentHash)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (c *implClient) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := c.bucket.IsObjectExist(key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return ok, nil
}

func (c *implClient) ContentHash(ctx context.Context, key string) (string, error) {
	meta, err := c.bucket.GetObjectDetailedMeta(key)
	if err != nil {
		return "", fmt.Errorf("meta %s: %w", key, err)
	}
	return meta.Get("X-Oss-Meta-" + metaHashKey), nil
}

func (c *implClient) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := c.bucket.SignURL(key, alioss.HTTPGet, int64(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return url, nil
}
