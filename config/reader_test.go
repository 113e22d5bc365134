package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfiguration(t *testing.T) {
	require := require.New(t)

	dir, err := os.MkdirTemp("", "safekit-config-test")
	require.Nil(err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.toml")
	err = os.WriteFile(path, []byte(`
[safe]
chain-rpc = "http://127.0.0.1:8545"
chain-id = 1
store-dir = "/tmp/safekit/registry.sqlite3"
signer-keys = ["1111111111111111111111111111111111111111111111111111111111111111"]
submitter-key = "2222222222222222222222222222222222222222222222222222222222222222"
timeout-seconds = 10

[dev]
log-level = 7
`), 0644)
	require.Nil(err)

	conf, err := ReadConfiguration(path)
	require.Nil(err)
	require.NotNil(conf.Safe)
	require.Equal("http://127.0.0.1:8545", conf.Safe.ChainRPC)
	require.Equal(int64(1), conf.Safe.ChainID)
	require.Len(conf.Safe.SignerKeys, 1)
	require.Equal(10, conf.Safe.TimeoutSeconds)
	require.Equal(7, conf.Dev.LogLevel)

	_, err = ReadConfiguration(filepath.Join(dir, "missing.toml"))
	require.NotNil(err)
}
