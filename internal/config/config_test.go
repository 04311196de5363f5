// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetKeys() {
	Keys = Network{
		Bind: "0.0.0.0", Port: 6380, Databases: 16, MaxClients: 10000,
		AOFFilename: "ridgedb.aof", AOFFsync: "everysec",
		RDBEnabled: true, RDBFilename: "dump.rdb",
		ClusterConfigFile:      "nodes.conf",
		ReplicationBacklogSize: 1 << 20,
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	fp := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(fp, []byte(body), 0o644))
	return fp
}

func TestInitOverridesDefaults(t *testing.T) {
	resetKeys()
	fp := writeConfig(t, `{"bind":"127.0.0.1","port":7000,"databases":4,"aof-enabled":true,"aof-fsync":"always"}`)
	require.NoError(t, Init(fp))
	assert.Equal(t, "127.0.0.1", Keys.Bind)
	assert.Equal(t, 7000, Keys.Port)
	assert.Equal(t, 4, Keys.Databases)
	assert.True(t, Keys.AOFEnabled)
	assert.Equal(t, "always", Keys.AOFFsync)
	// Untouched defaults survive a partial override.
	assert.Equal(t, "dump.rdb", Keys.RDBFilename)
}

func TestInitMissingFileIsNotAnError(t *testing.T) {
	resetKeys()
	require.NoError(t, Init(filepath.Join(t.TempDir(), "absent.json")))
	assert.Equal(t, "0.0.0.0", Keys.Bind)
}

func TestInitEmptyPathIsNoOp(t *testing.T) {
	resetKeys()
	require.NoError(t, Init(""))
	assert.Equal(t, 6380, Keys.Port)
}

func TestInitRejectsUnknownField(t *testing.T) {
	resetKeys()
	fp := writeConfig(t, `{"bnid":"oops"}`)
	assert.Error(t, Init(fp))
}

func TestInitRejectsBadFsyncEnum(t *testing.T) {
	resetKeys()
	fp := writeConfig(t, `{"aof-fsync":"hourly"}`)
	assert.Error(t, Init(fp))
}

func TestParseFsyncPolicy(t *testing.T) {
	for _, ok := range []string{"always", "everysec", "no"} {
		_, err := ParseFsyncPolicy(ok)
		assert.NoError(t, err)
	}
	_, err := ParseFsyncPolicy("hourly")
	assert.Error(t, err)
}
