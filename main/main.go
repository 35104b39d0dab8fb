package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/rawbytedev/bytebuf"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Profile describes a round-trip workload.
type Profile struct {
	Iterations  int   `yaml:"iterations"`
	Sizes       []int `yaml:"sizes"`
	Pooled      bool  `yaml:"pooled"`
	Workers     int   `yaml:"workers"`
	MaxCapacity int   `yaml:"max_capacity"`
}

func defaultProfile() Profile {
	return Profile{
		Iterations: 10000,
		Sizes:      []int{0, 64, 4096, 1 << 20},
		Workers:    runtime.GOMAXPROCS(0),
	}
}

func loadProfile(path string) (Profile, error) {
	p := defaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read profile")
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, errors.Wrapf(err, "parse profile %s", path)
	}
	if p.Iterations <= 0 || p.Workers <= 0 || len(p.Sizes) == 0 {
		return p, errors.Errorf("profile %s: iterations, workers and sizes must be positive", path)
	}
	return p, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		pprofAddr  string
		memProfile string
		logLevel   string
		iterations int
		workers    int
		size       int
		pooled     bool
		hold       time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML workload profile")
	flag.StringVar(&pprofAddr, "pprof-addr", "localhost:6060", "Address of the pprof HTTP server, empty to disable")
	flag.StringVar(&memProfile, "mem-profile", "mem.prof", "Heap profile output file, empty to disable")
	flag.StringVar(&logLevel, "log-level", "info", "Logging level")
	flag.IntVar(&iterations, "iterations", 0, "Round trips per worker, overrides the profile")
	flag.IntVar(&workers, "workers", 0, "Concurrent workers, overrides the profile")
	flag.IntVar(&size, "size", -1, "Single payload size, overrides the profile sizes")
	flag.BoolVar(&pooled, "pooled", false, "Mark payloads as pool allocated")
	flag.DurationVar(&hold, "hold", 0, "Keep the pprof server up for this long after the run")
	flag.Parse()

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	p, err := loadProfile(configPath)
	if err != nil {
		return err
	}
	if iterations > 0 {
		p.Iterations = iterations
	}
	if workers > 0 {
		p.Workers = workers
	}
	if size >= 0 {
		p.Sizes = []int{size}
	}
	if flag.CommandLine.Changed("pooled") {
		p.Pooled = pooled
	}

	if pprofAddr != "" {
		go func() {
			zap.S().Infof("pprof server stopped: %v", http.ListenAndServe(pprofAddr, nil))
		}()
	}
	if memProfile != "" {
		runtime.MemProfileRate = 1
	}

	codec := bytebuf.NewCodec(bytebuf.Options{MaxCapacity: p.MaxCapacity, Logger: logger})
	start := time.Now()
	if err := roundTrips(codec, p); err != nil {
		return err
	}
	zap.S().Infow("round trips complete",
		"iterations", p.Iterations, "workers", p.Workers, "sizes", p.Sizes,
		"pooled", p.Pooled, "elapsed", time.Since(start))

	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return errors.Wrap(err, "create heap profile")
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.Wrap(err, "write heap profile")
		}
	}
	if hold > 0 {
		time.Sleep(hold)
	}
	return nil
}

func roundTrips(codec *bytebuf.Codec, p Profile) error {
	var g errgroup.Group
	for w := 0; w < p.Workers; w++ {
		w := w
		g.Go(func() error {
			var out bytes.Buffer
			for _, sz := range p.Sizes {
				src := make([]byte, sz)
				if _, err := rand.Read(src); err != nil {
					return err
				}
				in := bytebuf.New(src, p.Pooled)
				for i := 0; i < p.Iterations; i++ {
					out.Reset()
					if err := codec.Encode(&out, in); err != nil {
						return err
					}
					res, err := codec.Decode(&out)
					if err != nil {
						return err
					}
					if !res.Equal(in) {
						return errors.Errorf("worker %d: round trip mismatch at size %d", w, sz)
					}
					res.Release()
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	return cfg.Build()
}
