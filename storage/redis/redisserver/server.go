// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package redisserver is package for starting a redis test server
package redisserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fallbackAddr = "localhost:3780"
	fallbackPort = 3780
)

func freeport() (addr string, port int) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fallbackAddr, fallbackPort
	}

	addr = listener.Addr().String()
	port = listener.Addr().(*net.TCPAddr).Port

	_ = listener.Close()
	return addr, port
}

// Start starts a redis-server when available, otherwise falls back to miniredis.
func Start(ctx context.Context, log *zap.Logger) (addr string, cleanup func(), err error) {
	addr, cleanup, err = Process(ctx)
	if err != nil {
		log.Debug("failed to start redis-server, using miniredis", zap.Error(err))
		return Mini()
	}
	return addr, cleanup, err
}

// Process starts a redis-server test process.
func Process(ctx context.Context) (addr string, cleanup func(), err error) {
	if _, err := exec.LookPath("redis-server"); err != nil {
		return "", nil, err
	}

	tmpdir, err := os.MkdirTemp("", "videostore-redis")
	if err != nil {
		return "", nil, err
	}

	// find a suitable port for listening
	var port int
	addr, port = freeport()

	// write a configuration file, because redis doesn't support flags
	confpath := filepath.Join(tmpdir, "test.conf")
	arguments := []string{
		"daemonize no",
		"port " + strconv.Itoa(port),
		"timeout 0",
		"databases 2",
		"dbfilename dump.rdb",
		"dir " + tmpdir,
	}
	conf := strings.Join(arguments, "\n") + "\n"
	err = os.WriteFile(confpath, []byte(conf), 0644)
	if err != nil {
		return "", nil, err
	}

	// start the process
	cmd := exec.Command("redis-server", confpath)
	read, write, err := os.Pipe()
	if err != nil {
		return "", nil, err
	}
	cmd.Stdout = write
	if err := cmd.Start(); err != nil {
		_ = read.Close()
		_ = write.Close()
		return "", nil, err
	}

	cleanup = func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		_ = write.Close()
		_ = read.Close()
		_ = os.RemoveAll(tmpdir)
	}

	// wait for redis to become ready
	waitForReady := make(chan struct{}, 1)
	go func() {
		// wait for the message that looks like
		//   "The server is now ready to accept connections on port 6379"
		scanner := bufio.NewScanner(read)
		for scanner.Scan() {
			if bytes.Contains(scanner.Bytes(), []byte("now ready to accept")) {
				break
			}
		}
		waitForReady <- struct{}{}
		_, _ = io.Copy(io.Discard, read)
	}()

	select {
	case <-waitForReady:
	case <-time.After(3 * time.Second):
		cleanup()
		return "", nil, errors.New("redis timeout")
	case <-ctx.Done():
		cleanup()
		return "", nil, ctx.Err()
	}

	// test whether we can actually connect
	if !pingServer(ctx, addr) {
		cleanup()
		return "", nil, errors.New("unable to ping")
	}

	return addr, cleanup, nil
}

func pingServer(ctx context.Context, addr string) bool {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() { _ = client.Close() }()
	return client.Ping(ctx).Err() == nil
}

// Mini starts miniredis server.
func Mini() (addr string, cleanup func(), err error) {
	server, err := miniredis.Run()
	if err != nil {
		return "", nil, err
	}

	return server.Addr(), func() {
		server.Close()
	}, nil
}
