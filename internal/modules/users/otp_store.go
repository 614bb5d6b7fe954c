package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"livraison-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "livraison:otp:"

// OTPStore holds one-time login codes in redis. A code lives for the
// configured TTL and is burned on first successful verification.
type OTPStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewOTPStore(rdb *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{redis: rdb, ttl: ttl}
}

func otpKey(phone string, role models.Role) string {
	return otpKeyPrefix + string(role) + ":" + phone
}

// Save overwrites any previous code for the same phone and role, so only the
// latest requested code is ever valid.
func (s *OTPStore) Save(ctx context.Context, phone string, role models.Role, code string) error {
	if err := s.redis.Set(ctx, otpKey(phone, role), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("otpstore.Save: %w", err)
	}
	return nil
}

// Verify checks the submitted code and deletes it on success. Expired,
// missing and mismatched codes all collapse to ErrInvalidOTP.
func (s *OTPStore) Verify(ctx context.Context, phone string, role models.Role, code string) error {
	key := otpKey(phone, role)
	stored, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ErrInvalidOTP
		}
		return fmt.Errorf("otpstore.Verify: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return models.ErrInvalidOTP
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("otpstore.Verify: burn: %w", err)
	}
	return nil
}
