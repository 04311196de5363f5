// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the on-disk JSON configuration,
// the same way the teacher's internal/config does for cc-backend:
// decode with DisallowUnknownFields, validate against an embedded
// JSON schema, then expose the result as a package-level Keys value.
// Grounded on original_source/src/config.rs (RidgeConfig) for the
// knob set itself (§6.6 plus cluster/replication/snapshot additions).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ridgedb/ridgedb/pkg/log"
)

// Keys is the process-wide decoded configuration, populated by Init.
// Exported as a plain package variable, matching the teacher's
// config.Keys idiom, so every internal/* package can read it without
// threading a Config value through every constructor.
var Keys = Network{
	Bind:       "0.0.0.0",
	Port:       6380,
	Databases:  16,
	MaxClients: 10000,

	AOFEnabled:  false,
	AOFFilename: "ridgedb.aof",
	AOFFsync:    "everysec",

	RDBEnabled:  true,
	RDBFilename: "dump.rdb",

	ClusterEnabled:    false,
	ClusterConfigFile: "nodes.conf",

	ReplicationBacklogSize: 1 << 20, // 1 MiB, per original_source's default repl-backlog-size

	MetricsAddr: "",
}

// Network is the full set of recognised configuration knobs: spec.md
// §6.6 (bind/port, databases, aof-*, rdb-*, maxclients, cluster-*) plus
// SPEC_FULL.md §A.2's additions (cluster-config-file, replication
// backlog size, snapshot local path and/or S3 bucket).
type Network struct {
	Bind       string `json:"bind"`
	Port       int    `json:"port"`
	Databases  int    `json:"databases"`
	MaxClients int    `json:"maxclients"`

	RequirePass string `json:"requirepass"`

	AOFEnabled  bool   `json:"aof-enabled"`
	AOFFilename string `json:"aof-filename"`
	AOFFsync    string `json:"aof-fsync"` // always | everysec | no

	RDBEnabled  bool   `json:"rdb-enabled"`
	RDBFilename string `json:"rdb-filename"`

	ClusterEnabled    bool   `json:"cluster-enabled"`
	ClusterConfigFile string `json:"cluster-config-file"`

	ReplicationBacklogSize int `json:"repl-backlog-size"`

	// Snapshot upload/download target; either or both of these may be
	// set. An empty S3Bucket disables S3 entirely (local file only).
	SnapshotPath string `json:"snapshot-path"`
	S3Bucket     string `json:"snapshot-s3-bucket"`
	S3Key        string `json:"snapshot-s3-key"`

	// MetricsAddr, when non-empty, starts internal/metrics' HTTP server
	// on this address ("host:port"); empty disables it.
	MetricsAddr string `json:"metrics-addr"`

	RateLimitPerSecond float64 `json:"rate-limit-per-second"`
	RateLimitBurst     int     `json:"rate-limit-burst"`

	// PubSubRelayAddr, when non-empty, mirrors every PUBLISH onto an
	// external NATS server at this address (internal/pubsub.Relay);
	// empty disables NATS federation. PubSubRelayPrefix namespaces the
	// relayed subjects so multiple RidgeDB deployments can share a NATS
	// cluster.
	PubSubRelayAddr   string `json:"pubsub-relay-addr"`
	PubSubRelayPrefix string `json:"pubsub-relay-prefix"`
}

// Init reads flagConfigFile (a JSON document), validates it against
// configSchema, and decodes it over Keys' defaults — matching the
// teacher's config.Init's read/validate/decode sequence. A missing
// file is not an error: Keys keeps its defaults, mirroring a
// requirepass-less, standalone instance with no config file at all.
func Init(flagConfigFile string) error {
	if flagConfigFile == "" {
		return nil
	}
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %q: %w", flagConfigFile, err)
	}

	if err := Validate(configSchema, raw); err != nil {
		return fmt.Errorf("config: validate %q: %w", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode %q: %w", flagConfigFile, err)
	}

	if _, err := ParseFsyncPolicy(Keys.AOFFsync); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log.Infof("config: loaded %s", flagConfigFile)
	return nil
}

// ParseFsyncPolicy validates the aof-fsync knob's value without
// importing internal/aof, which itself depends on internal/store and
// would make this a heavier dependency than config loading needs.
func ParseFsyncPolicy(s string) (string, error) {
	switch s {
	case "always", "everysec", "no":
		return s, nil
	default:
		return "", fmt.Errorf("unknown aof-fsync policy %q", s)
	}
}

// LoadEnv loads envFile (if present) into the process environment via
// godotenv, for secrets (requirepass, S3 credentials) that don't
// belong in the checked-in JSON config — matching the teacher's
// cmd/cc-backend/main.go call to godotenv.Load() before config.Init.
// A missing file is not an error.
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: loading %q: %w", envFile, err)
	}
	return nil
}
