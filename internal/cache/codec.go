package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Encode serialises v as msgpack using its JSON field names.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}

// GetValue loads and decodes key into v. It reports false on a miss.
func GetValue(ctx context.Context, c domain.Cache, tenantID, key string, v any) (bool, error) {
	data, err := c.Get(ctx, tenantID, key)
	if err != nil || data == nil {
		return false, err
	}
	if err := Decode(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// SetValue encodes v and stores it under key.
func SetValue(ctx context.Context, c domain.Cache, tenantID, key string, v any, ttl time.Duration) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, key, data, ttl)
}

// RequestKey derives a cache key for an operation from the SHA-256 of the
// request's canonical JSON encoding.
func RequestKey(op string, request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return op + ":" + hex.EncodeToString(sum[:]), nil
}
