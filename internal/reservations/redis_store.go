package reservations

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	holdKeyPrefix = "listing_hold:"
	expiryZSetKey = "listing_hold_expiry"
)

// RedisStore implements Store on Redis using Lua scripts so that acquire and
// release are atomic across concurrent requests and instances.
//
// Layout: one string key per listing ("listing_hold:<listing_id>" holding
// "<booking_id>|<acquired_unix_ms>|<expires_unix_ms>") plus a ZSET indexed by
// expiry time that feeds the sweeper. Keys carry a physical TTL of twice the
// logical TTL as a garbage-collection backstop; logical expiry is always
// judged from the stored timestamp.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed reservation store
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Lua script for atomic reservation acquire - prevents two concurrent bookers
// from both obtaining a hold on the same listing
const luaAcquireReservation = `
-- KEYS[1] = hold key
-- KEYS[2] = expiry zset
-- ARGV[1] = listing_id
-- ARGV[2] = booking_id
-- ARGV[3] = now_unix_ms
-- ARGV[4] = expires_unix_ms
-- ARGV[5] = grace_ttl_seconds

local hold_key = KEYS[1]
local zset_key = KEYS[2]
local listing_id = ARGV[1]
local booking_id = ARGV[2]
local now_ms = tonumber(ARGV[3])
local expires_ms = tonumber(ARGV[4])

local existing = redis.call("GET", hold_key)
if existing then
    local sep1 = string.find(existing, "|")
    local sep2 = string.find(existing, "|", sep1 + 1)
    local held_by = string.sub(existing, 1, sep1 - 1)
    local held_until = tonumber(string.sub(existing, sep2 + 1))

    -- A logically expired hold is treated as free
    if held_until > now_ms and held_by ~= booking_id then
        return {0, held_by}
    end
end

local value = booking_id .. "|" .. ARGV[3] .. "|" .. ARGV[4]
redis.call("SET", hold_key, value, "EX", tonumber(ARGV[5]))
redis.call("ZADD", zset_key, expires_ms, listing_id)
return {1, value}
`

// Lua script for owner-checked reservation release
const luaReleaseReservation = `
-- KEYS[1] = hold key
-- KEYS[2] = expiry zset
-- ARGV[1] = listing_id
-- ARGV[2] = booking_id

local existing = redis.call("GET", KEYS[1])
if not existing then
    redis.call("ZREM", KEYS[2], ARGV[1])
    return {1, "already_released"}
end

local sep1 = string.find(existing, "|")
local held_by = string.sub(existing, 1, sep1 - 1)
if held_by ~= ARGV[2] then
    -- Owned by a different booking, leave it alone
    return {1, "not_owner"}
end

redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return {1, "released"}
`

// Acquire atomically places a hold on the listing for the booking
func (s *RedisStore) Acquire(ctx context.Context, listingID, bookingID uuid.UUID, ttl time.Duration) (*Reservation, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	keys := []string{holdKeyPrefix + listingID.String(), expiryZSetKey}
	args := []interface{}{
		listingID.String(),
		bookingID.String(),
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expiresAt.UnixMilli(), 10),
		strconv.Itoa(int(ttl.Seconds()) * 2),
	}

	result, err := s.redis.EvalSha(ctx, luaAcquireReservation, keys, args...).Result()
	if err != nil {
		// If script is not loaded, try to load and execute
		result, err = s.redis.Eval(ctx, luaAcquireReservation, keys, args...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to execute atomic acquire: %w", err)
		}
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return nil, fmt.Errorf("unexpected result format from Lua script")
	}

	success, ok := resultArray[0].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid success flag in Lua script result")
	}

	if success == 0 {
		return nil, ErrHeld
	}

	return &Reservation{
		ListingID:  listingID,
		BookingID:  bookingID,
		AcquiredAt: now,
		ExpiresAt:  expiresAt,
	}, nil
}

// Release removes the hold if it is owned by the booking
func (s *RedisStore) Release(ctx context.Context, listingID, bookingID uuid.UUID) error {
	if s.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	keys := []string{holdKeyPrefix + listingID.String(), expiryZSetKey}
	args := []interface{}{listingID.String(), bookingID.String()}

	_, err := s.redis.EvalSha(ctx, luaReleaseReservation, keys, args...).Result()
	if err != nil {
		_, err = s.redis.Eval(ctx, luaReleaseReservation, keys, args...).Result()
		if err != nil {
			return fmt.Errorf("failed to execute atomic release: %w", err)
		}
	}

	return nil
}

// Expired lists holds whose logical expiry has passed. Entries whose hold key
// already aged out of Redis entirely are pruned from the index here; the
// ledger's own age-based sweep covers their bookings.
func (s *RedisStore) Expired(ctx context.Context, now time.Time) ([]Reservation, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	listingIDs, err := s.redis.ZRangeByScore(ctx, expiryZSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range expired holds: %w", err)
	}

	var expired []Reservation
	for _, idStr := range listingIDs {
		listingID, err := uuid.Parse(idStr)
		if err != nil {
			s.redis.ZRem(ctx, expiryZSetKey, idStr)
			continue
		}

		value, err := s.redis.Get(ctx, holdKeyPrefix+idStr).Result()
		if err == redis.Nil {
			// Physical key aged out, drop the index entry
			s.redis.ZRem(ctx, expiryZSetKey, idStr)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read hold for listing %s: %w", idStr, err)
		}

		parts := strings.SplitN(value, "|", 3)
		if len(parts) != 3 {
			s.redis.ZRem(ctx, expiryZSetKey, idStr)
			continue
		}

		bookingID, err := uuid.Parse(parts[0])
		if err != nil {
			s.redis.ZRem(ctx, expiryZSetKey, idStr)
			continue
		}
		acquiredMs, _ := strconv.ParseInt(parts[1], 10, 64)
		expiresMs, _ := strconv.ParseInt(parts[2], 10, 64)

		if expiresMs > now.UnixMilli() {
			// Re-acquired since the index was written
			continue
		}

		expired = append(expired, Reservation{
			ListingID:  listingID,
			BookingID:  bookingID,
			AcquiredAt: time.UnixMilli(acquiredMs),
			ExpiresAt:  time.UnixMilli(expiresMs),
		})
	}

	return expired, nil
}

// PreloadScripts loads Lua scripts into Redis for better performance
func (s *RedisStore) PreloadScripts(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	if _, err := s.redis.ScriptLoad(ctx, luaAcquireReservation).Result(); err != nil {
		return fmt.Errorf("failed to load acquire script: %w", err)
	}
	if _, err := s.redis.ScriptLoad(ctx, luaReleaseReservation).Result(); err != nil {
		return fmt.Errorf("failed to load release script: %w", err)
	}

	return nil
}
