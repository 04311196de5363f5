// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// configSchema validates the decoded Network config (§6.6's knobs plus
// the cluster-config-file/replication/snapshot additions), the same
// role the teacher's configSchema plays for schema.ProgramConfig.
var configSchema = `
	{
  "type": "object",
  "properties": {
    "bind": {
      "description": "Interface address to listen on (for example '0.0.0.0').",
      "type": "string"
    },
    "port": {
      "description": "TCP port to listen on.",
      "type": "integer"
    },
    "databases": {
      "description": "Count of logical databases (SELECT 0..databases-1).",
      "type": "integer"
    },
    "maxclients": {
      "description": "Maximum number of simultaneous client connections, 0 for unlimited.",
      "type": "integer"
    },
    "requirepass": {
      "description": "Plaintext password required by AUTH; hashed with bcrypt before use, never stored as given.",
      "type": "string"
    },
    "aof-enabled": {
      "description": "Whether the append-only durability log is active.",
      "type": "boolean"
    },
    "aof-filename": {
      "description": "Path to the append-only log file.",
      "type": "string"
    },
    "aof-fsync": {
      "description": "fsync policy for the append-only log.",
      "type": "string",
      "enum": ["always", "everysec", "no"]
    },
    "rdb-enabled": {
      "description": "Whether periodic point-in-time snapshots are taken.",
      "type": "boolean"
    },
    "rdb-filename": {
      "description": "Path to the snapshot file.",
      "type": "string"
    },
    "cluster-enabled": {
      "description": "Whether cluster mode (slot ownership, redirects, gossip-free static topology) is active.",
      "type": "boolean"
    },
    "cluster-config-file": {
      "description": "Path to the cluster nodes.conf state file.",
      "type": "string"
    },
    "repl-backlog-size": {
      "description": "Size in bytes of the partial-resync replication backlog.",
      "type": "integer"
    },
    "snapshot-path": {
      "description": "Local filesystem path snapshots are written to before an optional S3 upload.",
      "type": "string"
    },
    "snapshot-s3-bucket": {
      "description": "S3 bucket snapshots are uploaded to/restored from; empty disables S3.",
      "type": "string"
    },
    "snapshot-s3-key": {
      "description": "S3 object key (prefix) for uploaded snapshots.",
      "type": "string"
    },
    "metrics-addr": {
      "description": "host:port the Prometheus /metrics and /healthz HTTP server listens on; empty disables it.",
      "type": "string"
    },
    "rate-limit-per-second": {
      "description": "Per-connection token-bucket refill rate; 0 disables rate limiting.",
      "type": "number"
    },
    "rate-limit-burst": {
      "description": "Per-connection token-bucket burst size.",
      "type": "integer"
    },
    "pubsub-relay-addr": {
      "description": "NATS server address to mirror PUBLISH traffic onto; empty disables relaying.",
      "type": "string"
    },
    "pubsub-relay-prefix": {
      "description": "Subject prefix used for relayed channels.",
      "type": "string"
    }
  }
	}`
