// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "fmt"

// Validate checks that every loaded setting is internally consistent.
// Load calls this automatically; callers constructing a Config by hand
// (tests, embedding) should call it too.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateMemory(); err != nil {
		return err
	}
	if err := c.validateReplication(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.MaxConcurrentWriters <= 0 {
		return fmt.Errorf("storage.max_concurrent_writers must be positive")
	}
	if c.Storage.MaxDocumentBytes <= 0 {
		return fmt.Errorf("storage.max_document_bytes must be positive")
	}
	return nil
}

func (c *Config) validateMemory() error {
	if c.Memory.CriticalMB <= c.Memory.ElevatedMB {
		return fmt.Errorf("memory.critical_mb (%d) must be greater than memory.elevated_mb (%d)",
			c.Memory.CriticalMB, c.Memory.ElevatedMB)
	}
	return nil
}

func (c *Config) validateReplication() error {
	if len(c.Replication.Peers) > 0 && c.Replication.NodeID == "" {
		return fmt.Errorf("replication.node_id is required when replication.peers is set")
	}
	for _, peer := range c.Replication.Peers {
		if peer.NodeID == "" {
			return fmt.Errorf("replication.peers: every peer needs a node_id")
		}
		if peer.Addr == "" {
			return fmt.Errorf("replication.peers: peer %q needs an addr", peer.NodeID)
		}
		if peer.NodeID == c.Replication.NodeID {
			return fmt.Errorf("replication.peers: peer %q must not equal this node's own node_id", peer.NodeID)
		}
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if !c.Analytics.Enabled {
		return nil
	}
	if !c.Analytics.EmbeddedServer && c.Analytics.NATSURL == "" {
		return fmt.Errorf("analytics.nats_url is required when analytics.embedded_server is false")
	}
	if c.Analytics.DataDir == "" {
		return fmt.Errorf("analytics.data_dir must not be empty when analytics is enabled")
	}
	if c.Analytics.FlushSize <= 0 {
		return fmt.Errorf("analytics.flush_size must be positive")
	}
	if c.Analytics.FlushInterval <= 0 {
		return fmt.Errorf("analytics.flush_interval must be positive")
	}
	if c.Analytics.RetentionDays <= 0 {
		return fmt.Errorf("analytics.retention_days must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("security.rate_limit_requests must be positive")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("security.rate_limit_window must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
}

var validLogFormats = map[string]bool{"json": true, "console": true}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format %q must be \"json\" or \"console\"", c.Logging.Format)
	}
	return nil
}
