// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/videostore/storage"
)

var (
	// Error is a redis error.
	Error = errs.Class("redis")

	mon = monkit.Package()
)

const expiresSize = 8

// writeRow stores a row and keeps the partition keys alive as long as
// their longest living row. A row without ttl makes the partition
// permanent, a permanent partition never gets an expiry again.
var writeRow = redis.NewScript(`
local ttl = tonumber(ARGV[3])
local current = redis.call('PTTL', KEYS[1])
redis.call('ZADD', KEYS[1], 0, ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
if ttl <= 0 then
	redis.call('PERSIST', KEYS[1])
	redis.call('PERSIST', KEYS[2])
elseif current == -2 or (current >= 0 and current < ttl) then
	redis.call('PEXPIRE', KEYS[1], ttl)
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`)

// ttlMillis rounds ttl up to whole milliseconds.
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return int64((ttl + time.Millisecond - 1) / time.Millisecond)
}

// Client is the storage.Store implementation backed by redis.
//
// Every partition is kept as a sorted set of clustering keys, which are
// all scored zero so they are ordered lexicographically, and a hash from
// clustering key to value. Values carry their expiration time, expired
// rows are skipped on read. Partitions holding only expiring rows are
// removed by redis once the last row expired.
type Client struct {
	db *redis.Client

	mu    sync.Mutex
	nowFn func() time.Time
}

// OpenClient returns a configured Client instance, verifying a successful connection to redis.
func OpenClient(ctx context.Context, address, password string, db int) (*Client, error) {
	client := &Client{
		db: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
		nowFn: time.Now,
	}

	// ping here to verify we are able to connect to redis with the initialized client.
	if err := client.db.Ping(ctx).Err(); err != nil {
		return nil, errs.Combine(Error.New("ping failed: %v", err), client.db.Close())
	}

	return client, nil
}

// OpenClientFrom returns a configured Client instance from a redis address, verifying a successful connection to redis.
func OpenClientFrom(ctx context.Context, address string) (*Client, error) {
	redisurl, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	if redisurl.Scheme != "redis" {
		return nil, Error.New("not a redis:// formatted address")
	}

	q := redisurl.Query()

	db := 0
	if s := q.Get("db"); s != "" {
		db, err = strconv.Atoi(s)
		if err != nil {
			return nil, Error.Wrap(err)
		}
	}

	return OpenClient(ctx, redisurl.Host, q.Get("password"), db)
}

// TestingSetNow allows tests to have the store act as if the current time is whatever they want.
func (client *Client) TestingSetNow(nowFn func() time.Time) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.nowFn = nowFn
}

func (client *Client) now() time.Time {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.nowFn()
}

// Raw returns the underlying redis client.
func (client *Client) Raw() *redis.Client { return client.db }

func setKey(table storage.Table, partition storage.Key) string {
	return "z:" + string(table) + ":" + string(partition)
}

func hashKey(table storage.Table, partition storage.Key) string {
	return "h:" + string(table) + ":" + string(partition)
}

func encodeValue(value storage.Value, expires time.Time) []byte {
	data := make([]byte, expiresSize, expiresSize+len(value))
	if !expires.IsZero() {
		binary.BigEndian.PutUint64(data, uint64(expires.UnixNano()))
	}
	return append(data, value...)
}

func decodeValue(data []byte, now time.Time) (storage.Value, bool, error) {
	if len(data) < expiresSize {
		return nil, false, Error.New("corrupted value: %d bytes", len(data))
	}
	expires := int64(binary.BigEndian.Uint64(data))
	if expires != 0 && now.UnixNano() >= expires {
		return nil, false, nil
	}
	return storage.Value(data[expiresSize:]), true, nil
}

// Apply executes all mutations in a MULTI/EXEC transaction.
func (client *Client) Apply(ctx context.Context, mutations ...storage.Mutation) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, m := range mutations {
		if err := m.Verify(); err != nil {
			return err
		}
	}
	if len(mutations) == 0 {
		return nil
	}

	now := client.now()
	_, err = client.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range mutations {
			zkey, hkey := setKey(m.Table, m.Partition), hashKey(m.Table, m.Partition)
			member := string(m.Clustering)

			switch {
			case m.Delete && m.Clustering.IsZero():
				pipe.Del(ctx, zkey, hkey)
			case m.Delete:
				pipe.ZRem(ctx, zkey, member)
				pipe.HDel(ctx, hkey, member)
			default:
				var expires time.Time
				if m.TTL > 0 {
					expires = now.Add(m.TTL)
				}
				writeRow.Eval(ctx, pipe, []string{zkey, hkey}, member, encodeValue(m.Value, expires), ttlMillis(m.TTL))
			}
		}
		return nil
	})
	return Error.Wrap(err)
}

// Get returns the value of a single row.
func (client *Client) Get(ctx context.Context, table storage.Table, partition, clustering storage.Key) (_ storage.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	if partition.IsZero() {
		return nil, storage.ErrEmptyKey.New("table %q", table)
	}

	data, err := client.db.HGet(ctx, hashKey(table, partition), string(clustering)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrKeyNotFound.New("%q", clustering)
	}
	if err != nil {
		return nil, Error.New("get error: %v", err)
	}

	value, live, err := decodeValue(data, client.now())
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, storage.ErrKeyNotFound.New("%q", clustering)
	}
	return value, nil
}

// Scan returns a cursor that loads a page per ZRANGEBYLEX round trip.
func (client *Client) Scan(ctx context.Context, opts storage.ScanOptions) storage.Cursor {
	if opts.Partition.IsZero() {
		return storage.ErrorCursor(storage.ErrEmptyKey.New("table %q", opts.Table))
	}

	zkey, hkey := setKey(opts.Table, opts.Partition), hashKey(opts.Table, opts.Partition)
	return storage.NewPagedCursor(opts, func(ctx context.Context, lo, hi storage.Key, reverse bool, limit int) (_ []storage.Row, err error) {
		defer mon.Task()(&ctx)(&err)

		now := client.now()
		var rows []storage.Row
		for len(rows) < limit {
			requested := limit - len(rows)
			members, err := client.rangeByLex(ctx, zkey, lo, hi, reverse, int64(requested))
			if err != nil {
				return nil, err
			}
			if len(members) == 0 {
				return rows, nil
			}

			values, err := client.db.HMGet(ctx, hkey, members...).Result()
			if err != nil {
				return nil, Error.New("hmget error: %v", err)
			}

			for i, member := range members {
				raw, ok := values[i].(string)
				if !ok {
					// removed between the two round trips
					continue
				}
				value, live, err := decodeValue([]byte(raw), now)
				if err != nil {
					return nil, err
				}
				if live {
					rows = append(rows, storage.Row{Clustering: storage.Key(member), Value: value})
				}
			}

			if len(members) < requested {
				return rows, nil
			}

			// continue past the skipped rows
			last := storage.Key(members[len(members)-1])
			if reverse {
				hi = last
			} else {
				lo = storage.NextKey(last)
			}
			if hi != nil && !lo.Less(hi) {
				return rows, nil
			}
		}
		return rows, nil
	})
}

func (client *Client) rangeByLex(ctx context.Context, zkey string, lo, hi storage.Key, reverse bool, count int64) ([]string, error) {
	by := &redis.ZRangeBy{
		Min:   "-",
		Max:   "+",
		Count: count,
	}
	if !lo.IsZero() {
		by.Min = "[" + string(lo)
	}
	if hi != nil {
		by.Max = "(" + string(hi)
	}

	var members []string
	var err error
	if reverse {
		members, err = client.db.ZRevRangeByLex(ctx, zkey, by).Result()
	} else {
		members, err = client.db.ZRangeByLex(ctx, zkey, by).Result()
	}
	if err != nil {
		return nil, Error.New("range error: %v", err)
	}
	return members, nil
}

// Count returns the number of visible rows selected by opts.
func (client *Client) Count(ctx context.Context, opts storage.ScanOptions) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)
	return storage.CountRows(ctx, client.Scan(ctx, opts))
}

// FlushDB deletes all keys in the currently selected DB.
func (client *Client) FlushDB(ctx context.Context) error {
	_, err := client.db.FlushDB(ctx).Result()
	return Error.Wrap(err)
}

// Close closes a redis client.
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}
