// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command hydroc builds one of the seed programs of spec.md §8, runs
// a rewrite pipeline over it (the standard one, or the descriptor named
// by the config file's "pipeline" key),
// lowers it to per-location DFIR, and either prints the result once
// or serves it over the §6.2 deployment-collaborator HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhellerstein/hydro-sub000/internal/builder"
	"github.com/jhellerstein/hydro-sub000/internal/config"
	"github.com/jhellerstein/hydro-sub000/internal/dfir"
	"github.com/jhellerstein/hydro-sub000/internal/finalize"
	"github.com/jhellerstein/hydro-sub000/internal/httpapi"
	"github.com/jhellerstein/hydro-sub000/internal/render"
	"github.com/jhellerstein/hydro-sub000/internal/rewrite"
	"github.com/jhellerstein/hydro-sub000/pkg/buildcache"
	"github.com/jhellerstein/hydro-sub000/pkg/log"
	"github.com/jhellerstein/hydro-sub000/pkg/runtimeEnv"
)

func main() {
	var flagScenario, flagConfigFile, flagRenderFormat, flagLogLevel, flagUser, flagGroup string
	var flagServe, flagGops bool
	flag.StringVar(&flagScenario, "scenario", "s1", "which seed scenario (s1..s6) to compile")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "overwrite the default config with `config.json`")
	flag.StringVar(&flagRenderFormat, "render", "mmd", "one-shot render format when not -serve: mmd or dot")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "log level: debug, info, notice, warn, err, crit")
	flag.BoolVar(&flagServe, "serve", false, "serve the compiled program over the deployment-collaborator HTTP surface instead of printing it once")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagUser, "user", "", "drop privileges to this user after binding the configured addr (serve mode only)")
	flag.StringVar(&flagGroup, "group", "", "drop privileges to this group after binding the configured addr (serve mode only)")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing '.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile, flagConfigFile == "./config.json"); err != nil {
		log.Fatal(err)
	}

	sc, ok := scenarioByName(flagScenario)
	if !ok {
		log.Fatalf("unknown scenario %q", flagScenario)
	}

	graph, locs, err := builder.Build(sc.fn)
	if err != nil {
		log.Fatalf("construction failed: %s", err.Error())
	}

	registry := prometheus.NewRegistry()
	counters := config.NewCounters(registry, config.Keys.CounterSampleHz)

	pipeline := rewrite.Standard()
	if config.Keys.Pipeline != "" {
		pipeline, err = config.LoadPipeline(config.Keys.Pipeline, counters)
		if err != nil {
			log.Fatalf("loading pipeline %s: %s", config.Keys.Pipeline, err.Error())
		}
	}
	if err := pipeline.Run(graph); err != nil {
		log.Fatalf("rewrite pipeline failed: %s", err.Error())
	}

	fz, err := finalize.Finalize(graph)
	if err != nil {
		log.Fatalf("finalize failed: %s", err.Error())
	}

	lowered, err := dfir.LowerAll(fz, locs)
	if err != nil {
		log.Fatalf("lowering failed: %s", err.Error())
	}
	log.Infof("hydroc: compiled scenario %q (%s) into %d location-programs", sc.name, sc.doc, len(lowered))

	cache, err := openCache()
	if err != nil {
		log.Fatalf("opening build cache failed: %s", err.Error())
	}
	defer cache.Close()
	if err := cacheManifests(cache, sc.name, lowered); err != nil {
		log.Warnf("hydroc: caching lowered manifests failed: %s", err)
	}

	if !flagServe {
		printOnce(lowered, flagRenderFormat)
		return
	}

	serve(&httpapi.Program{Locs: locs, Lowered: lowered}, flagUser, flagGroup)
}

func printOnce(lowered map[int]*dfir.Graph, format string) {
	for id, g := range lowered {
		switch format {
		case "dot":
			fmt.Printf("// location id %d\n%s\n", id, render.ToDot(g))
		default:
			fmt.Printf("%%%% location id %d\n%s\n", id, render.ToMermaid(g))
		}
	}
}

// openCache opens the content-addressed build-artifact cache (§5),
// and starts its background GC scheduler.
func openCache() (*buildcache.Cache, error) {
	cache, err := buildcache.Open(context.Background(), buildcache.Options{
		Dir:      config.Keys.CacheDir,
		HotBytes: config.Keys.CacheHotBytes,
		S3Bucket: config.Keys.CacheS3Bucket,
	})
	if err != nil {
		return nil, err
	}
	if _, err := buildcache.StartGC(cache, buildcache.GCPolicy{
		MaxAge: time.Duration(config.Keys.CacheGCMaxAgeHours) * time.Hour,
		Hour:   3,
		Minute: 30,
	}); err != nil {
		return nil, fmt.Errorf("starting cache GC: %w", err)
	}
	return cache, nil
}

// cacheManifests records one cache entry per lowered location, keyed
// on the scenario name and location id, so a repeated "hydroc -scenario
// s1" run finds its rendered manifests in the cache instead of storing
// them again. Lowering itself runs on every invocation.
func cacheManifests(cache *buildcache.Cache, scenario string, lowered map[int]*dfir.Graph) error {
	for id, g := range lowered {
		key := buildcache.ComputeKey([]string{scenario, fmt.Sprintf("loc:%d", id)}, nil)
		mmd := render.ToMermaid(g)
		_, err := cache.GetOrBuild(context.Background(), key, func() ([]byte, buildcache.Manifest, error) {
			return []byte(mmd), buildcache.Manifest{
				Key:           string(key),
				FragmentCount: int32(len(g.Operators)),
				GraphDigest:   string(key),
				CreatedAtUnix: time.Now().Unix(),
			}, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func serve(prog *httpapi.Program, user, group string) {
	listener, err := net.Listen("tcp", config.Keys.Addr)
	if err != nil {
		log.Fatal(err)
	}
	if user != "" || group != "" {
		if err := runtimeEnv.DropPrivileges(user, group); err != nil {
			log.Fatalf("dropping privileges to user=%q group=%q failed: %s", user, group, err.Error())
		}
	}

	server := http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      httpapi.NewRouter(prog),
		Addr:         config.Keys.Addr,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		server.Shutdown(context.Background())
	}()

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(25)
	}
	log.Infof("hydroc: deployment-collaborator surface listening at %s", config.Keys.Addr)
	runtimeEnv.SystemdNotifiy(true, "running")
	wg.Wait()
	log.Print("hydroc: graceful shutdown completed")
}
