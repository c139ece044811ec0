package config

import (
	"encoding/hex"
	"time"

	"github.com/megayours/tma-session/internal/errors"
)

const (
	storageBackendVar = "TMA_STORAGE_BACKEND"
	storageDirVar     = "TMA_STORAGE_DIR"
	sealKeyVar        = "TMA_STORAGE_SEAL_KEY"
	redisAddrVar      = "TMA_REDIS_ADDR"
	redisPasswordVar  = "TMA_REDIS_PASSWORD"
	redisDBVar        = "TMA_REDIS_DB"
	redisPrefixVar    = "TMA_REDIS_PREFIX"
	storageTTLVar     = "TMA_STORAGE_TTL"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetStorageDir() string
	// GetSealKey returns the 32-byte key for sealing file slots, or nil.
	GetSealKey() []byte
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetStorageTTL() time.Duration
}

type Storage struct {
	file *StorageFile
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageBackend() string {
	return lookup(storageBackendVar, s.file.Backend, "file")
}

func (s Storage) GetStorageDir() string {
	return lookup(storageDirVar, s.file.Dir, "./data")
}

func (s Storage) GetSealKey() []byte {
	key, err := hex.DecodeString(lookup(sealKeyVar, s.file.SealKey, ""))
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

func (s Storage) GetRedisAddr() string {
	return lookup(redisAddrVar, s.file.RedisAddr, "")
}

func (s Storage) GetRedisPassword() string {
	return lookup(redisPasswordVar, s.file.RedisPassword, "")
}

func (s Storage) GetRedisDB() int {
	return lookupInt(redisDBVar, s.file.RedisDB, 0)
}

func (s Storage) GetRedisPrefix() string {
	return lookup(redisPrefixVar, s.file.RedisPrefix, "tma")
}

// GetStorageTTL bounds how long the Redis backend keeps a value. Zero
// keeps values until they are deleted.
func (s Storage) GetStorageTTL() time.Duration {
	return lookupDuration(storageTTLVar, s.file.TTL, 0)
}

func (s Storage) validate() error {
	if raw := lookup(sealKeyVar, s.file.SealKey, ""); raw != "" && s.GetSealKey() == nil {
		return errors.Wrapf(errors.ErrSealKeyLength, "%s must be 64 hex characters", sealKeyVar)
	}
	if s.GetStorageBackend() == "redis" && s.GetRedisAddr() == "" {
		return errors.Wrapf(errors.ErrMissingRedisURL, "%s", redisAddrVar)
	}
	return checkDuration(storageTTLVar, s.file.TTL)
}
