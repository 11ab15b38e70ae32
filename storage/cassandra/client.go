// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package cassandra

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

var (
	// Error is the default cassandra errs class.
	Error = errs.Class("cassandra")

	mon = monkit.Package()

	validTable = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// Client is the storage.Store implementation backed by cassandra.
//
// Every table has the shape (p blob, c blob, v blob, PRIMARY KEY (p, c)),
// tables are created the first time they are used.
type Client struct {
	log     *zap.Logger
	session *gocql.Session

	mu     sync.Mutex
	tables map[storage.Table]struct{}
}

// Open connects to the cluster described by a url of the form
// cassandra://host1,host2/keyspace?consistency=quorum&timeout=5s.
func Open(ctx context.Context, log *zap.Logger, address string) (*Client, error) {
	cluster, err := ClusterFromURL(address)
	if err != nil {
		return nil, err
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, Error.Wrap(err)
	}

	log.Debug("connected to cassandra",
		zap.Strings("hosts", cluster.Hosts),
		zap.String("keyspace", cluster.Keyspace))

	return &Client{
		log:     log,
		session: session,
		tables:  map[storage.Table]struct{}{},
	}, nil
}

// ClusterFromURL parses the connection url into a cluster configuration.
func ClusterFromURL(address string) (*gocql.ClusterConfig, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if parsed.Scheme != "cassandra" {
		return nil, Error.New("not a cassandra:// formatted address")
	}

	hosts := strings.Split(parsed.Host, ",")
	keyspace := strings.Trim(parsed.Path, "/")
	if parsed.Host == "" || keyspace == "" {
		return nil, Error.New("address must contain hosts and keyspace: %q", address)
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.LocalQuorum

	q := parsed.Query()
	if s := q.Get("consistency"); s != "" {
		consistency, err := parseConsistency(s)
		if err != nil {
			return nil, err
		}
		cluster.Consistency = consistency
	}
	if s := q.Get("timeout"); s != "" {
		timeout, err := time.ParseDuration(s)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		cluster.Timeout = timeout
	}
	if s := q.Get("user"); s != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: s,
			Password: q.Get("password"),
		}
	}

	cluster.RetryPolicy = &gocql.DowngradingConsistencyRetryPolicy{
		ConsistencyLevelsToTry: []gocql.Consistency{gocql.LocalQuorum, gocql.LocalOne, gocql.One},
	}

	return cluster, nil
}

func parseConsistency(s string) (consistency gocql.Consistency, err error) {
	defer func() {
		// gocql panics on unknown names
		if r := recover(); r != nil {
			err = Error.New("invalid consistency %q", s)
		}
	}()
	return gocql.ParseConsistency(strings.ToUpper(s)), nil
}

func (client *Client) ensureTable(ctx context.Context, table storage.Table) error {
	client.mu.Lock()
	_, ok := client.tables[table]
	client.mu.Unlock()
	if ok {
		return nil
	}

	if !validTable.MatchString(string(table)) {
		return storage.ErrInvalidMutation.New("invalid table name %q", table)
	}

	err := client.session.Query(`CREATE TABLE IF NOT EXISTS ` + string(table) +
		` (p blob, c blob, v blob, PRIMARY KEY (p, c))`).WithContext(ctx).Exec()
	if err != nil {
		return Error.Wrap(err)
	}

	client.mu.Lock()
	client.tables[table] = struct{}{}
	client.mu.Unlock()
	return nil
}

// CreateSchema creates tables ahead of their first use.
func (client *Client) CreateSchema(ctx context.Context, tables ...storage.Table) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, table := range tables {
		if err := client.ensureTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// TestingTruncate removes every row of tables.
func (client *Client) TestingTruncate(ctx context.Context, tables ...storage.Table) error {
	for _, table := range tables {
		if err := client.ensureTable(ctx, table); err != nil {
			return err
		}
		if err := client.session.Query(`TRUNCATE ` + string(table)).WithContext(ctx).Exec(); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// ttlSeconds rounds ttl up to whole seconds.
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int((ttl + time.Second - 1) / time.Second)
}

// Apply executes all mutations as a single logged batch.
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

	batch := client.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, m := range mutations {
		if err := client.ensureTable(ctx, m.Table); err != nil {
			return err
		}

		table := string(m.Table)
		switch {
		case m.Delete && m.Clustering.IsZero():
			batch.Query(`DELETE FROM `+table+` WHERE p = ?`, []byte(m.Partition))
		case m.Delete:
			batch.Query(`DELETE FROM `+table+` WHERE p = ? AND c = ?`, []byte(m.Partition), []byte(m.Clustering))
		default:
			value := []byte(m.Value)
			if value == nil {
				value = []byte{}
			}
			batch.Query(`INSERT INTO `+table+` (p, c, v) VALUES (?, ?, ?) USING TTL ?`,
				[]byte(m.Partition), []byte(m.Clustering), value, ttlSeconds(m.TTL))
		}
	}

	return Error.Wrap(client.session.ExecuteBatch(batch))
}

// Get returns the value of a single row.
func (client *Client) Get(ctx context.Context, table storage.Table, partition, clustering storage.Key) (_ storage.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	if partition.IsZero() {
		return nil, storage.ErrEmptyKey.New("table %q", table)
	}
	if err := client.ensureTable(ctx, table); err != nil {
		return nil, err
	}

	var value []byte
	err = client.session.Query(`SELECT v FROM `+string(table)+` WHERE p = ? AND c = ?`,
		[]byte(partition), []byte(clustering)).WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, storage.ErrKeyNotFound.New("%q", clustering)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return storage.Value(value), nil
}

// Scan returns a cursor that loads a page per query.
func (client *Client) Scan(ctx context.Context, opts storage.ScanOptions) storage.Cursor {
	if opts.Partition.IsZero() {
		return storage.ErrorCursor(storage.ErrEmptyKey.New("table %q", opts.Table))
	}
	if err := client.ensureTable(ctx, opts.Table); err != nil {
		return storage.ErrorCursor(err)
	}

	return storage.NewPagedCursor(opts, func(ctx context.Context, lo, hi storage.Key, reverse bool, limit int) (_ []storage.Row, err error) {
		defer mon.Task()(&ctx)(&err)

		stmt := `SELECT c, v FROM ` + string(opts.Table) + ` WHERE p = ? AND c >= ?`
		args := []interface{}{[]byte(opts.Partition), nonNil(lo)}
		if hi != nil {
			stmt += ` AND c < ?`
			args = append(args, []byte(hi))
		}
		if reverse {
			stmt += ` ORDER BY c DESC`
		}
		stmt += ` LIMIT ` + strconv.Itoa(limit)

		iter := client.session.Query(stmt, args...).WithContext(ctx).PageSize(limit).Iter()

		var rows []storage.Row
		var clustering, value []byte
		for iter.Scan(&clustering, &value) {
			rows = append(rows, storage.Row{
				Clustering: storage.CloneKey(clustering),
				Value:      storage.CloneValue(value),
			})
		}
		return rows, Error.Wrap(iter.Close())
	})
}

func nonNil(key storage.Key) []byte {
	if key == nil {
		return []byte{}
	}
	return key
}

// Count returns the number of rows selected by opts.
func (client *Client) Count(ctx context.Context, opts storage.ScanOptions) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)
	return storage.CountRows(ctx, client.Scan(ctx, opts))
}

// Close closes the session.
func (client *Client) Close() error {
	client.session.Close()
	return nil
}
