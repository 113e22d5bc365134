package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
)

type SafeConfig struct {
	// ChainRPC is the execution layer JSON-RPC endpoint.
	ChainRPC string `toml:"chain-rpc"`
	ChainID  int64  `toml:"chain-id"`

	// ServiceURL overrides the built-in transaction service table, mainly
	// for self-hosted deployments and local forks.
	ServiceURL string `toml:"service-url"`

	StorePath string `toml:"store-dir"`

	// SignerKeys are hex encoded private keys of locally controlled
	// owners, consulted in this order.
	SignerKeys []string `toml:"signer-keys"`

	// SubmitterKey authorizes execution transactions; may equal one of
	// the signer keys.
	SubmitterKey string `toml:"submitter-key"`

	TimeoutSeconds int `toml:"timeout-seconds"`
}

type Configuration struct {
	Safe *SafeConfig `toml:"safe"`
	Dev  *DevConfig  `toml:"dev"`
}

func ReadConfiguration(path string) (*Configuration, error) {
	if strings.HasPrefix(path, "~/") {
		usr, _ := user.Current()
		path = filepath.Join(usr.HomeDir, (path)[2:])
	}
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Configuration
	err = toml.Unmarshal(f, &conf)
	if err != nil {
		return nil, err
	}
	handleDevConfig(conf.Dev)
	return &conf, nil
}
