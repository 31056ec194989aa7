package redis

import (
	"github.com/redis/go-redis/v9"
)

// Script outcome markers shared between Lua and Go.
const (
	outcomeOK       = "ok"
	outcomeConflict = "conflict"
	outcomeNotFound = "not_found"
)

// mintScript retires the user's outstanding non-terminal token, inserts the
// new MINTED record, and repoints the current-token reference, all in one
// atomic step. Token keys carry a TTL of validity plus grace so stale
// records are evicted by the engine.
//
// KEYS[1] current-token pointer, KEYS[2] new token hash.
// ARGV: 1 new token id, 2 user id, 3 now ms, 4 expires-at ms, 5 evict-after
// ms, 6 token key prefix.
var mintScript = redis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old and old ~= ARGV[1] then
  local okey = ARGV[6] .. old
  local st = redis.call('HGET', okey, 'status')
  if st and st ~= 'completed' and st ~= 'expired' then
    redis.call('HSET', okey, 'status', 'expired', 'completed_at_ms', ARGV[3])
  end
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'conflict'
end
redis.call('HSET', KEYS[2],
  'id', ARGV[1],
  'user_id', ARGV[2],
  'status', 'minted',
  'created_at_ms', ARGV[3],
  'expires_at_ms', ARGV[4],
  'advanced_at_ms', 0,
  'completed_at_ms', 0)
redis.call('PEXPIRE', KEYS[2], ARGV[5])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[5])
return 'ok'
`)

// advanceScript is the MINTED to IN_FLIGHT compare-and-set. A token already
// in flight is left untouched so the advance stays idempotent without
// re-stamping advanced_at. A token past its expiry reads as expired no
// matter what status is stored.
//
// KEYS[1] token hash. ARGV[1] now ms.
var advanceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local st = redis.call('HGET', KEYS[1], 'status')
if st == 'completed' or st == 'expired' then
  return st
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms'))
if exp and tonumber(ARGV[1]) > exp then
  return 'expired'
end
if st == 'in_flight' then
  return 'in_flight'
end
if st ~= 'minted' then
  return st
end
redis.call('HSET', KEYS[1], 'status', 'in_flight', 'advanced_at_ms', ARGV[1])
return 'ok'
`)

// completeScript is the IN_FLIGHT to COMPLETED compare-and-set. Of two
// concurrent completions exactly one sees 'ok'; the loser observes
// 'completed'. The expiry guard keeps a racing completion from landing on a
// token that lapsed between the caller's read and this call.
//
// KEYS[1] token hash. ARGV[1] now ms.
var completeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local st = redis.call('HGET', KEYS[1], 'status')
if st == 'completed' or st == 'expired' then
  return st
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms'))
if exp and tonumber(ARGV[1]) > exp then
  return 'expired'
end
if st ~= 'in_flight' then
  return st
end
redis.call('HSET', KEYS[1], 'status', 'completed', 'completed_at_ms', ARGV[1])
return 'ok'
`)

// retireScript forces a token to EXPIRED unless it already reached a
// terminal state. Idempotent.
//
// KEYS[1] token hash. ARGV[1] now ms.
var retireScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local st = redis.call('HGET', KEYS[1], 'status')
if st == 'completed' or st == 'expired' then
  return st
end
redis.call('HSET', KEYS[1], 'status', 'expired', 'completed_at_ms', ARGV[1])
return 'ok'
`)

// deliveryScript applies the post-send bookkeeping in one atomic step: mark
// the post seen (idempotent), bump files_consumed only when the post is new,
// stamp last_seen, and bump the per-file and global download counters.
//
// KEYS[1] user hash, KEYS[2] user seen set, KEYS[3] file hash, KEYS[4]
// global downloads counter. ARGV[1] post number, ARGV[2] now ms.
var deliveryScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err = 'user not found'}
end
local added = redis.call('SADD', KEYS[2], ARGV[1])
if added == 1 then
  redis.call('HINCRBY', KEYS[1], 'files_consumed', 1)
end
redis.call('HSET', KEYS[1], 'last_seen_ms', ARGV[2], 'updated_at_ms', ARGV[2])
redis.call('HINCRBY', KEYS[3], 'downloads', 1)
redis.call('HSET', KEYS[3], 'last_downloaded_ms', ARGV[2], 'updated_at_ms', ARGV[2])
redis.call('INCR', KEYS[4])
local consumed = redis.call('HGET', KEYS[1], 'files_consumed')
return {added, consumed}
`)

// verifyScript applies a verification reset: flip the verified flag, stamp
// the window, zero the quota, drop the seen set, and index the expiry.
//
// KEYS[1] user hash, KEYS[2] user seen set, KEYS[3] expiry index.
// ARGV: 1 user id, 2 verified-at ms, 3 expires-at ms, 4 verified-by.
var verifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
redis.call('HSET', KEYS[1],
  'verified', '1',
  'verified_at_ms', ARGV[2],
  'expires_at_ms', ARGV[3],
  'verified_by', ARGV[4],
  'files_consumed', 0,
  'updated_at_ms', ARGV[2])
redis.call('DEL', KEYS[2])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 'ok'
`)

// unverifyScript clears a verification and removes the expiry index entry.
//
// KEYS[1] user hash, KEYS[2] expiry index. ARGV: 1 user id, 2 now ms,
// 3 cleared-by.
var unverifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
redis.call('HSET', KEYS[1],
  'verified', '0',
  'verified_at_ms', 0,
  'expires_at_ms', 0,
  'verified_by', ARGV[3],
  'updated_at_ms', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])
return 'ok'
`)
