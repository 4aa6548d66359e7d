//go:build profiling
// +build profiling

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"

	"github.com/meigma/courier"
)

type profileKind string

const (
	profileCPU   profileKind = "cpu"
	profileFG    profileKind = "fgprof"
	profileTrace profileKind = "trace"
	profileNone  profileKind = "none"
)

const (
	bodyBytes     = "bytes"
	bodyFile      = "file"
	bodyMultipart = "multipart"
)

func main() {
	var (
		target    = flag.String("url", "", "upload target (default: in-process sink server)")
		body      = flag.String("body", bodyBytes, "body kind: bytes, file, or multipart")
		size      = flag.Int64("size", 256<<20, "payload size in bytes")
		chunk     = flag.Int("chunk-size", 64*1024, "maximum bytes per write")
		compress  = flag.String("compression", "none", "compression: none, gzip, zstd")
		progress  = flag.Bool("progress", true, "register an upload progress callback")
		profile   = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir    = flag.String("out", "profiles", "output directory for profiles")
		label     = flag.String("label", "", "label suffix for profile files")
		repeat    = flag.Int("repeat", 1, "number of iterations")
		logLevel  = flag.String("log-level", "", "log level: debug, info, warn, error")
		timeout   = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr  = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
		scratchIn = flag.String("scratch", "tmp/profiledata", "directory for generated payload files")
	)
	flag.Parse()

	runID := time.Now().UTC().Format("20060102T150405Z")

	profileKindValue := profileKind(strings.ToLower(*profile))
	if !isValidProfile(profileKindValue) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}
	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}

	// When Pyroscope is enabled, stream profiles instead of writing locally
	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName:   "courier-profile",
			ServerAddress:     *pyroAddr,
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			UploadRate:        5 * time.Second,
			Logger:            pyroscope.StandardLogger,
			Tags: map[string]string{
				"body":    *body,
				"git_sha": os.Getenv("GITHUB_SHA"),
				"run_id":  runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	} else if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create profile output dir: %v", err)
	}

	url := *target
	if url == "" {
		sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, _ := io.Copy(io.Discard, r.Body)
			fmt.Fprintf(w, "%d", n)
		}))
		defer sink.Close()
		url = sink.URL
	}

	var clientOpts []courier.ClientOption
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		clientOpts = append(clientOpts, courier.WithLogger(logger))
	}
	client, err := courier.NewClient(append(clientOpts, courier.WithStatusCheck(true))...)
	if err != nil {
		log.Fatalf("create client: %v", err)
	}

	labelParts := []string{*body}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	var stopProfile func() error
	if *pyroAddr == "" {
		stopProfile, err = startProfile(profileKindValue, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var events atomic.Int64
	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		payload, err := makePayload(*body, *size, *scratchIn)
		if err != nil {
			log.Fatalf("build payload: %v", err)
		}
		if *compress != "none" {
			payload = courier.Compress(payload, compression(*compress))
		}
		req := courier.Post(url, courier.Chunked(payload, *chunk))
		if *progress {
			req.OnUploadProgress(courier.ProgressFunc(func(courier.ProgressEvent) { events.Add(1) }))
		}

		start := time.Now()
		if _, err := client.Bytes(ctx, req); err != nil {
			log.Fatalf("upload: %v", err)
		}
		elapsed := time.Since(start)
		log.Printf("upload complete: %s (%.1f MiB/s, %d events)",
			elapsed, float64(*size)/(1<<20)/elapsed.Seconds(), events.Load())
	}

	// Stop profiling - either Pyroscope or local
	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
		return
	}
	if stopErr := stopProfile(); stopErr != nil {
		log.Fatalf("stop profile: %v", stopErr)
	}
	if err := writeHeapProfile(*outDir, labelValue); err != nil {
		log.Fatalf("write heap profile: %v", err)
	}
}

func makePayload(kind string, size int64, scratch string) (courier.Payload, error) {
	switch kind {
	case bodyBytes:
		return courier.Bytes("application/octet-stream", make([]byte, size)), nil
	case bodyFile, bodyMultipart:
		path, err := ensureScratchFile(scratch, size)
		if err != nil {
			return nil, err
		}
		if kind == bodyFile {
			return courier.File(path, "")
		}
		mp := courier.NewMultipart().Field("run", time.Now().UTC().Format(time.RFC3339Nano))
		if err := mp.File("blob", path); err != nil {
			return nil, err
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unknown body kind %q", kind)
	}
}

func ensureScratchFile(dir string, size int64) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("payload-%d.bin", size))
	if info, err := os.Stat(path); err == nil && info.Size() == size {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func compression(name string) courier.Compression {
	switch name {
	case "gzip":
		return courier.GzipCompression()
	case "zstd":
		return courier.ZstdCompression()
	default:
		log.Fatalf("invalid compression %q (expected none, gzip, zstd)", name)
		return nil
	}
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	switch kind {
	case profileCPU:
		f, err := os.Create(filepath.Join(outDir, "cpu_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		f, err := os.Create(filepath.Join(outDir, "fgprof_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			return errors.Join(stop(), f.Close())
		}, nil
	case profileTrace:
		f, err := os.Create(filepath.Join(outDir, "trace_"+label+".out"))
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	case profileNone:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

func writeHeapProfile(outDir, label string) error {
	f, err := os.Create(filepath.Join(outDir, "heap_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}
