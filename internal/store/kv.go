package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"siteflow/internal/domain"
)

// KV stores each context as one key of a JetStream key-value bucket. Project
// names must be valid KV keys, which every generated slug is.
type KV struct {
	bucket jetstream.KeyValue
}

// NewKV opens the bucket, creating it with a single-revision history when it
// does not exist yet.
func NewKV(ctx context.Context, js jetstream.JetStream, bucket string) (*KV, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "siteflow project contexts",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	return &KV{bucket: kv}, nil
}

func (k *KV) Get(ctx context.Context, projectName string) (domain.ProjectContext, error) {
	if projectName == "" {
		return domain.ProjectContext{}, ErrNotFound
	}
	entry, err := k.bucket.Get(ctx, projectName)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return domain.ProjectContext{}, ErrNotFound
		}
		return domain.ProjectContext{}, err
	}
	return decode(projectName, entry.Value())
}

func (k *KV) FindByPartialName(ctx context.Context, pattern string) ([]domain.ProjectContext, error) {
	keys, err := k.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []domain.ProjectContext{}, nil
		}
		return nil, err
	}
	res := []domain.ProjectContext{}
	for _, key := range keys {
		if !matches(key, pattern) {
			continue
		}
		pc, err := k.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// deleted between listing and reading
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, pc)
	}
	sortByName(res)
	return res, nil
}

func (k *KV) Save(ctx context.Context, pc domain.ProjectContext) error {
	data, err := encode(pc)
	if err != nil {
		return err
	}
	if _, err := k.bucket.Put(ctx, pc.ProjectName, data); err != nil {
		return fmt.Errorf("put %s: %w", pc.ProjectName, err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, projectName string) error {
	if err := k.bucket.Purge(ctx, projectName); err != nil {
		return fmt.Errorf("purge %s: %w", projectName, err)
	}
	return nil
}
