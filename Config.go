/*
File Name:  Config.go

Client configuration, loaded from a YAML file exactly as Peernet's
Settings.go does (gopkg.in/yaml.v3), generalized to the §6 configuration
table this node needs: supported sub-protocols, storage radius, bootnode
list, bind addresses, transport mode, and whether to rebuild routing
tables from the persistence backend on startup. Runtime overrides follow
Peernet's Config Modify.go pattern of "only overwrite non-zero fields".
*/

package core

import (
	"errors"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the current client library version.
const Version = "0.1"

// ErrNoBootnodes is returned by Bootstrap when the configuration names none.
var ErrNoBootnodes = errors.New("core: no bootnodes configured")

// Config is the node's full configuration, loaded from YAML.
type Config struct {
	LogFile string `yaml:"LogFile"`

	// PrivateKey is the node's identity key, hex-encoded so it can be copied
	// manually. Generated and persisted on first run if empty.
	PrivateKey string `yaml:"PrivateKey"`

	// SubProtocols lists the overlay tags this node participates in.
	SubProtocols []uint16 `yaml:"SubProtocols"`

	// InitialRadius is the starting storage radius, hex-encoded u256.
	InitialRadius string `yaml:"InitialRadius"`

	// Bootnodes is a list of "enr:"-prefixed ENR text records (the form
	// EncodeBootnode produces) used to warm up the routing table on startup.
	// Entries that do not parse as such a record are skipped.
	Bootnodes []string `yaml:"Bootnodes"`

	// Listen is the bind address for the UDP transport.
	Listen string `yaml:"Listen"`

	// BulkListen is the bind address for the bulk-transfer socket that carries
	// multi-chunk content payloads after an OFFER/ACCEPT exchange. Empty
	// disables the bulk endpoint: the node still answers FINDCONTENT and
	// OFFER, but any transfer needing a connection id fails with
	// ErrTransferUnavailable.
	BulkListen string `yaml:"BulkListen"`

	// Transport selects the discovery substrate implementation: "node" (the
	// default UDP socket), "web", or "mobile". Only "node" is implemented by
	// this client; the other values are accepted for forward compatibility
	// with embedding clients that supply their own transport.Discovery.
	Transport string `yaml:"Transport"`

	// RebuildFromPersistence is loaded from and saved to the config file, but
	// Node does not read it: routing tables always start empty, and their
	// contents are not persisted.
	RebuildFromPersistence bool `yaml:"RebuildFromPersistence"`

	// StoreHighWatermark bounds each sub-protocol's content store in bytes
	// before farthest-first eviction kicks in.
	StoreHighWatermark int64 `yaml:"StoreHighWatermark"`

	// StoreDirectory is the base path for the persistence backend's files.
	// Empty selects an in-memory backend.
	StoreDirectory string `yaml:"StoreDirectory"`
}

// defaultConfig returns the built-in fallback used when no config file exists.
func defaultConfig() *Config {
	return &Config{
		LogFile:            "Log.txt",
		SubProtocols:       []uint16{0x500B, 0x500A, 0x501A, 0x500C},
		InitialRadius:      "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		Listen:             "0.0.0.0:0",
		BulkListen:         "0.0.0.0:0",
		Transport:          "node",
		StoreHighWatermark: 1 << 30, // 1 GiB per sub-protocol
	}
}

// LoadConfig reads a YAML configuration file, falling back to built-in
// defaults (and writing them out) if the file does not exist or is empty.
func LoadConfig(filename string) (cfg *Config, err error) {
	stats, err := os.Stat(filename)
	if err != nil && os.IsNotExist(err) || err == nil && stats.Size() == 0 {
		cfg = defaultConfig()
		return cfg, SaveConfig(filename, cfg)
	} else if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg = defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration back to filename as YAML.
func SaveConfig(filename string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// Modify applies only the non-zero fields of patch onto cfg, matching the
// Peernet's ModifyConfig.ModifyConfig "overwrite what was explicitly set" rule.
func (cfg *Config) Modify(patch *Config) {
	if patch.LogFile != "" {
		cfg.LogFile = patch.LogFile
	}
	if patch.PrivateKey != "" {
		cfg.PrivateKey = patch.PrivateKey
	}
	if len(patch.SubProtocols) != 0 {
		cfg.SubProtocols = patch.SubProtocols
	}
	if patch.InitialRadius != "" {
		cfg.InitialRadius = patch.InitialRadius
	}
	if len(patch.Bootnodes) != 0 {
		cfg.Bootnodes = patch.Bootnodes
	}
	if patch.Listen != "" {
		cfg.Listen = patch.Listen
	}
	if patch.BulkListen != "" {
		cfg.BulkListen = patch.BulkListen
	}
	if patch.Transport != "" {
		cfg.Transport = patch.Transport
	}
	if patch.RebuildFromPersistence {
		cfg.RebuildFromPersistence = true
	}
	if patch.StoreHighWatermark != 0 {
		cfg.StoreHighWatermark = patch.StoreHighWatermark
	}
	if patch.StoreDirectory != "" {
		cfg.StoreDirectory = patch.StoreDirectory
	}
}

// InitLog redirects subsequent log output into the file named by cfg.LogFile,
// matching Peernet's Settings.go InitLog/log.SetOutput behavior.
func InitLog(cfg *Config) (*os.File, error) {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	log.SetOutput(logFile)
	return logFile, nil
}
