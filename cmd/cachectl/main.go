// cachectl: operator CLI for the cache store.
// Commands: push, pull, put, get, rm, touch, invalidate, ls.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/forgeci/cachestore/internal/cachestore"
	"github.com/forgeci/cachestore/internal/compress"
	"github.com/forgeci/cachestore/internal/config"
	"github.com/forgeci/cachestore/internal/contenttype"
	"github.com/forgeci/cachestore/internal/logging"
	"github.com/forgeci/cachestore/internal/s3client"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: cachectl <command> [args]

  push [-z] <key> <file>    upload a cache entry (-z: zstd-compress)
  pull [-z] <key> <file>    download a cache entry (-z: zstd-decompress)
  put <key> <json-file>     store a JSON object ("-" reads stdin)
  get <key>                 fetch and print a JSON object
  rm <key>                  delete an object
  touch <key>               refresh a cache entry's last-modified time
  invalidate <prefix>       delete every cache entry under prefix
  ls [prefix]               list objects under prefix

config: %s (env CACHESTORE_* overrides)
`, configPath())
	os.Exit(2)
}

func configPath() string {
	if v := os.Getenv("CACHESTORE_CONFIG"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cachestore", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
	if cfg.AccessKey != "" && cfg.SecretKey == "" {
		cfg.SecretKey = promptSecret()
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	log := logger.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"bucket":  cfg.Bucket,
		"segment": cfg.Segment,
	})

	ctx := context.Background()
	client, err := s3client.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
	store := cachestore.New(client, s3client.NewUploader(client, cfg.PartSize()), cachestore.Options{
		Bucket:  cfg.Bucket,
		Segment: cfg.Segment,
		Logger:  log,
	})

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "push":
		cmdPush(ctx, store, log, args)
	case "pull":
		cmdPull(ctx, store, args)
	case "put":
		cmdPut(ctx, store, args)
	case "get":
		cmdGet(ctx, store, args)
	case "rm":
		cmdRm(ctx, store, args)
	case "touch":
		cmdTouch(ctx, store, args)
	case "invalidate":
		cmdInvalidate(ctx, store, args)
	case "ls":
		cmdLs(ctx, store, args)
	default:
		usage()
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
	os.Exit(1)
}

func promptSecret() string {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return ""
	}
	fmt.Fprint(os.Stderr, "secret key: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func transferFlags(name string, args []string) (key, file string, z bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	compressed := fs.Bool("z", false, "zstd compression")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}
	return fs.Arg(0), fs.Arg(1), *compressed
}

func cmdPush(ctx context.Context, store *cachestore.Store, log logrus.FieldLogger, args []string) {
	key, file, z := transferFlags("push", args)
	f, err := os.Open(file)
	if err != nil {
		fail(err)
	}
	defer f.Close()

	log.WithFields(logrus.Fields{
		"key":          key,
		"file":         file,
		"content_type": contenttype.Detect(file),
	}).Info("pushing cache entry")

	var body io.Reader = f
	if z {
		wrapped := compress.Wrap(f)
		defer wrapped.Close()
		body = wrapped
	}
	if err := store.UploadStream(ctx, body, key); err != nil {
		fail(err)
	}
	fmt.Printf("pushed %s\n", key)
}

func cmdPull(ctx context.Context, store *cachestore.Store, args []string) {
	key, file, z := transferFlags("pull", args)
	body, err := store.DownloadStream(ctx, key)
	if err != nil {
		fail(err)
	}
	defer body.Close()

	var src io.Reader = body
	if z {
		unwrapped, err := compress.Unwrap(body)
		if err != nil {
			fail(err)
		}
		defer unwrapped.Close()
		src = unwrapped
	}

	f, err := os.Create(file)
	if err != nil {
		fail(err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(file)
		fail(err)
	}
	if err := f.Close(); err != nil {
		fail(err)
	}
	fmt.Printf("pulled %s\n", key)
}

func cmdPut(ctx context.Context, store *cachestore.Store, args []string) {
	if len(args) != 2 {
		usage()
	}
	key, file := args[0], args[1]

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		fail(err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		fail(fmt.Errorf("parse %s: %w", file, err))
	}
	if err := store.UploadObject(ctx, v, key); err != nil {
		fail(err)
	}
	fmt.Printf("put %s\n", key)
}

func cmdGet(ctx context.Context, store *cachestore.Store, args []string) {
	if len(args) != 1 {
		usage()
	}
	var v any
	if err := store.GetObject(ctx, args[0], &v); err != nil {
		fail(err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

func cmdRm(ctx context.Context, store *cachestore.Store, args []string) {
	if len(args) != 1 {
		usage()
	}
	if err := store.DeleteObject(ctx, args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("removed %s\n", args[0])
}

func cmdTouch(ctx context.Context, store *cachestore.Store, args []string) {
	if len(args) != 1 {
		usage()
	}
	if err := store.RefreshLastModified(ctx, args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("touched %s\n", args[0])
}

func cmdInvalidate(ctx context.Context, store *cachestore.Store, args []string) {
	if len(args) != 1 {
		usage()
	}
	if err := store.InvalidateCache(ctx, args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("invalidated %s\n", args[0])
}

func cmdLs(ctx context.Context, store *cachestore.Store, args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	entries, err := store.List(ctx, prefix)
	if err != nil {
		fail(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Key", "Size", "Last Modified", "Class"})
	for _, e := range entries {
		class := e.StorageClass
		if class == "" {
			class = "STANDARD"
		}
		t.AppendRow(table.Row{e.Key, e.Size, e.LastModified.Format("2006-01-02 15:04:05"), class})
	}
	t.Render()
}
