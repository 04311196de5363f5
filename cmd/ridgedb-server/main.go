// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ridgedb-server is the RidgeDB entrypoint: it loads
// configuration, wires every internal/* package together, and runs
// the RESP listener until told to stop. Grounded on the teacher's
// cmd/cc-backend/main.go for the overall flag-parse/init/serve/
// graceful-shutdown shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"golang.org/x/time/rate"

	"github.com/ridgedb/ridgedb/internal/aof"
	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/config"
	"github.com/ridgedb/ridgedb/internal/metrics"
	"github.com/ridgedb/ridgedb/internal/pubsub"
	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/internal/scripting"
	"github.com/ridgedb/ridgedb/internal/server"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/runtimeEnv"
)

// rdbSnapshotInterval is how often a running instance with rdb-enabled
// writes a fresh point-in-time snapshot, the direct analogue of the
// teacher's taskManager cron frequencies (SPEC_FULL.md §A.5's gocron
// row) — spec.md leaves the exact cadence unspecified (§9), so this
// picks a conservative default rather than adding another knob nothing
// in spec.md names.
const rdbSnapshotInterval = 5 * time.Minute

// replicaStaleAfter bounds how long a replica stream may go without an
// ACK before Master.ReapStale drops it (see internal/replication's
// ReapStale doc comment).
const replicaStaleAfter = 10 * time.Second

func main() {
	var flagConfigFile, flagEnvFile string
	var flagNoServer, flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the JSON configuration file")
	flag.StringVar(&flagEnvFile, "env", "./.env", "Path to an optional .env file with secrets (requirepass, AWS credentials, ...)")
	flag.BoolVar(&flagNoServer, "no-server", false, "Initialize and then exit without accepting connections")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	if err := config.LoadEnv(flagEnvFile); err != nil {
		log.Fatalf("loading %q failed: %s", flagEnvFile, err)
	}
	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("loading config: %s", err)
	}
	keys := config.Keys

	ks := store.NewKeyspace(keys.Databases)
	table := command.NewTable()
	hub := pubsub.NewHub()
	scripts := scripting.New()

	if keys.PubSubRelayAddr != "" {
		relay, err := pubsub.NewRelay(keys.PubSubRelayAddr, keys.PubSubRelayPrefix)
		if err != nil {
			log.Fatalf("pubsub: NATS relay: %s", err)
		}
		hub.SetRelay(relay)
		defer relay.Close()
	}

	master := replication.NewMaster(keys.ReplicationBacklogSize)
	master.SetSnapshotProvider(snapshotProvider{fullSync: aof.FullSyncFrames, ks: ks})
	replCtrl := newReplController(master, ks, table, keys.Port)

	clusterRegistry := cluster.NewRegistry(keys.ClusterEnabled)
	if keys.ClusterEnabled {
		if err := clusterRegistry.LoadNodesConf(keys.ClusterConfigFile); err != nil {
			log.Warnf("cluster: loading %q failed: %s", keys.ClusterConfigFile, err)
		}
		clusterRegistry.SetMyAddr(fmt.Sprintf("%s:%d", keys.Bind, keys.Port))
	}

	loadPersistedState(&keys, table, ks)

	var writer *aof.Writer
	if keys.AOFEnabled {
		policy, err := aof.ParseSyncPolicy(keys.AOFFsync)
		if err != nil {
			log.Fatalf("aof: %s", err)
		}
		writer, err = aof.Open(keys.AOFFilename, policy)
		if err != nil {
			log.Fatalf("aof: %s", err)
		}
		if _, err := aof.Load(keys.AOFFilename, table, ks); err != nil {
			log.Fatalf("aof: replay: %s", err)
		}
	}

	cfg := server.DefaultConfig(fmt.Sprintf("%s:%d", keys.Bind, keys.Port))
	cfg.MaxClients = keys.MaxClients
	if keys.RequirePass != "" {
		hash, err := server.HashPassword(keys.RequirePass)
		if err != nil {
			log.Fatalf("hashing requirepass: %s", err)
		}
		cfg.RequirePassHash = hash
	}
	if keys.RateLimitPerSecond > 0 {
		cfg.RateLimitPerSecond = rate.Limit(keys.RateLimitPerSecond)
		cfg.RateLimitBurst = keys.RateLimitBurst
	}

	srv := server.NewServer(cfg, table, ks, hub, scripts)
	if writer != nil {
		srv.SetDurability(writer)
	}
	srv.SetPropagator(master)
	srv.SetReplicationController(replCtrl)
	srv.SetMaster(master)
	if keys.ClusterEnabled {
		srv.SetCluster(clusterRegistry)
	}

	sched, err := server.NewScheduler()
	if err != nil {
		log.Fatalf("scheduler: %s", err)
	}
	if err := sched.RegisterActiveExpireSweep(ks, time.Second); err != nil {
		log.Fatalf("scheduler: active expire: %s", err)
	}
	if writer != nil && keys.AOFFsync == "everysec" {
		if err := sched.RegisterFunc(time.Second, func() {
			if err := writer.FlushAndSync(); err != nil {
				log.Warnf("aof: everysec fsync failed: %s", err)
			}
		}); err != nil {
			log.Fatalf("scheduler: aof fsync: %s", err)
		}
	}
	if err := sched.RegisterFunc(time.Second, func() {
		master.ReapStale(replicaStaleAfter)
	}); err != nil {
		log.Fatalf("scheduler: replica reaper: %s", err)
	}
	if keys.ClusterEnabled {
		if err := sched.RegisterFunc(30*time.Second, func() {
			if err := clusterRegistry.SaveNodesConf(keys.ClusterConfigFile); err != nil {
				log.Warnf("cluster: saving %q failed: %s", keys.ClusterConfigFile, err)
			}
		}); err != nil {
			log.Fatalf("scheduler: nodes.conf save: %s", err)
		}
	}
	if keys.RDBEnabled {
		if err := sched.RegisterFunc(rdbSnapshotInterval, func() {
			snapshotAndMaybeUpload(&keys, ks)
		}); err != nil {
			log.Fatalf("scheduler: snapshot: %s", err)
		}
	}
	sched.Start()

	var metricsSrv *metrics.Server
	if keys.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(keys.MetricsAddr, &instanceMetrics{srv: srv, master: master, cluster: clusterRegistry})
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil {
				log.Errorf("metrics: %s", err)
			}
		}()
	}

	if flagNoServer {
		return
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("server: %s", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	runtimeEnv.SystemdNotifiy(true, "running")
	<-sigs

	log.Infof("shutting down")
	runtimeEnv.SystemdNotifiy(false, "shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("server shutdown: %s", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			log.Warnf("metrics shutdown: %s", err)
		}
	}
	if err := sched.Shutdown(); err != nil {
		log.Warnf("scheduler shutdown: %s", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			log.Warnf("aof close: %s", err)
		}
	}
	log.Infof("graceful shutdown complete")
}

// loadPersistedState bootstraps ks from the last snapshot before any
// AOF replay: an S3-backed snapshot is pulled down first (best effort
// — a fresh cluster member may have no remote snapshot yet), then the
// local RDB-style file is loaded if rdb-enabled, giving the AOF replay
// that follows in main a base state to apply its tail on top of.
func loadPersistedState(keys *config.Network, table *command.Table, ks *store.Keyspace) {
	if !keys.RDBEnabled {
		return
	}
	if keys.S3Bucket != "" {
		sink, err := aof.NewS3Sink(context.Background(), keys.S3Bucket, keys.S3Key)
		if err != nil {
			log.Warnf("snapshot: S3 sink: %s", err)
		} else if err := sink.Download(context.Background(), keys.RDBFilename); err != nil {
			log.Warnf("snapshot: S3 download: %s", err)
		}
	}
	if _, err := aof.LoadSnapshot(keys.RDBFilename, table, ks); err != nil {
		log.Warnf("snapshot: load %q failed: %s", keys.RDBFilename, err)
	}
}

// snapshotAndMaybeUpload writes a fresh point-in-time snapshot and, if
// an S3 bucket is configured, uploads it — the scheduled tick behind
// rdb-enabled.
func snapshotAndMaybeUpload(keys *config.Network, ks *store.Keyspace) {
	if err := aof.WriteSnapshot(ks, keys.RDBFilename); err != nil {
		log.Warnf("snapshot: write failed: %s", err)
		return
	}
	if keys.S3Bucket == "" {
		return
	}
	sink, err := aof.NewS3Sink(context.Background(), keys.S3Bucket, keys.S3Key)
	if err != nil {
		log.Warnf("snapshot: S3 sink: %s", err)
		return
	}
	if err := sink.Upload(context.Background(), keys.RDBFilename); err != nil {
		log.Warnf("snapshot: S3 upload failed: %s", err)
	}
}
