/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads and validates the server's configuration surface: a
// KEY=value text file with '#' comments, recognized keys PORT,
// DOCUMENT_ROOT, NUM_WORKERS, THREADS_PER_WORKER, MAX_QUEUE_SIZE, LOG_FILE,
// CACHE_SIZE_MB, TIMEOUT_SECONDS, DEFAULT_VHOST, and zero or more
// VHOST_<hostname>=<doc_root> entries.
package config

import (
	"fmt"
	"sort"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nabbar/staticd/apperror"
)

const maxVHosts = 10

// VHost maps one Host header value to an alternative document root.
type VHost struct {
	Hostname string `validate:"required,hostname_rfc1123"`
	DocRoot  string `validate:"required"`
}

// ServerConfig is the immutable, validated configuration consumed by every
// other component. It is never mutated after Load returns.
type ServerConfig struct {
	Name string

	Port           uint16 `validate:"required,min=1,max=65535"`
	DefaultDocRoot string `validate:"required,dir"`
	VHosts         []VHost
	DefaultVHost   string

	Workers          uint32 `validate:"required,min=1"`
	ThreadsPerWorker uint32 `validate:"required,min=1"`
	QueueCapacity    uint32 `validate:"required,min=1"`

	CacheBytes uint64

	IdleTimeoutSeconds uint32 `validate:"required,min=1"`

	LogPath string `validate:"required"`

	SourcePath string
}

// PoolSize is workers * threads_per_worker, the total number of worker
// goroutines the supervisor creates.
func (c *ServerConfig) PoolSize() int {
	return int(c.Workers) * int(c.ThreadsPerWorker)
}

// ResolveDocRoot implements the §4.G vhost-resolution rule: a matching
// vhost hostname wins, then default_vhost, then the default doc root.
// hostname is expected already stripped of any ":port" suffix by the
// caller (see session's hostWithoutPort); matching is case-insensitive.
func (c *ServerConfig) ResolveDocRoot(hostname string) string {
	if hostname != "" {
		for _, v := range c.VHosts {
			if strings.EqualFold(v.Hostname, hostname) {
				return v.DocRoot
			}
		}
	}

	if c.DefaultVHost != "" {
		for _, v := range c.VHosts {
			if strings.EqualFold(v.Hostname, c.DefaultVHost) {
				return v.DocRoot
			}
		}
	}

	return c.DefaultDocRoot
}

// Load reads and validates a configuration file at path, in the dotenv-like
// KEY=value format described above.
func Load(path string) (*ServerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("dotenv")

	if err := v.ReadInConfig(); err != nil {
		return nil, apperror.New(apperror.ErrorConfigRead, err)
	}

	cfg := &ServerConfig{SourcePath: path}

	cfg.Port = uint16(v.GetUint("port"))
	cfg.DefaultDocRoot = expandHome(v.GetString("document_root"))
	cfg.Workers = v.GetUint32("num_workers")
	cfg.ThreadsPerWorker = v.GetUint32("threads_per_worker")
	cfg.QueueCapacity = v.GetUint32("max_queue_size")
	cfg.LogPath = expandHome(v.GetString("log_file"))
	cfg.CacheBytes = v.GetUint64("cache_size_mb") * 1024 * 1024
	cfg.IdleTimeoutSeconds = v.GetUint32("timeout_seconds")
	cfg.DefaultVHost = strings.ToLower(strings.TrimSpace(v.GetString("default_vhost")))

	// AllSettings would nest a key such as "vhost_example.com" under
	// "vhost_example" at the '.', so the flat key list is used instead.
	settings := make(map[string]interface{})
	for _, key := range v.AllKeys() {
		settings[key] = v.Get(key)
	}

	vhosts, err := parseVHosts(settings)
	if err != nil {
		return nil, apperror.New(apperror.ErrorConfigParse, err)
	}
	cfg.VHosts = vhosts

	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("staticd:%d", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperror.New(apperror.ErrorConfigInvalid, err)
	}

	return cfg, nil
}

// parseVHosts recovers VHOST_<hostname>=<root> entries. Viper's dotenv
// decoder flattens every key to lower-case, so a key that began with
// "VHOST_" in the file surfaces here as "vhost_<hostname>" — this is the
// direct analogue of the original C loader's strncmp(key, "VHOST_", 6)
// scan.
func parseVHosts(settings map[string]interface{}) ([]VHost, error) {
	const prefix = "vhost_"

	var out []VHost
	for key, raw := range settings {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		hostname := strings.TrimPrefix(key, prefix)
		root, ok := raw.(string)
		if !ok || hostname == "" || root == "" {
			continue
		}

		out = append(out, VHost{
			Hostname: strings.ToLower(hostname),
			DocRoot:  expandHome(root),
		})
	}

	if len(out) > maxVHosts {
		return nil, fmt.Errorf("too many VHOST_ entries: %d (max %d)", len(out), maxVHosts)
	}

	// Deterministic order: the spec models vhosts as an "ordered set";
	// viper's map iteration isn't, so sort by hostname for reproducibility.
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })

	return out, nil
}

func expandHome(p string) string {
	if p == "" {
		return p
	}
	if expanded, err := homedir.Expand(p); err == nil {
		return expanded
	}
	return p
}

var validate = validator.New()

// Validate enforces the invariants from the data model: all size fields
// must be positive except CacheBytes, which may be zero (disables caching).
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	for _, v := range c.VHosts {
		if err := validate.Struct(v); err != nil {
			return fmt.Errorf("invalid vhost %q: %w", v.Hostname, err)
		}
	}

	if c.DefaultVHost != "" {
		found := false
		for _, v := range c.VHosts {
			if strings.EqualFold(v.Hostname, c.DefaultVHost) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("default_vhost %q does not match any configured VHOST_ entry", c.DefaultVHost)
		}
	}

	return nil
}
