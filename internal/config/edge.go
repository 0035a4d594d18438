package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EdgePolicy controls the HTTP edge: which origins the CORS middleware
// reflects, and how long static assets are cached.
type EdgePolicy struct {
	AllowedOrigins []string    `mapstructure:"allowedOrigins"`
	CacheRules     []CacheRule `mapstructure:"cacheRules"`
	DefaultMaxAge  int         `mapstructure:"defaultMaxAge"`
}

// CacheRule maps a set of file extensions to a Cache-Control lifetime.
// MaxAge <= 0 means no-cache.
type CacheRule struct {
	Extensions []string `mapstructure:"extensions"`
	MaxAge     int      `mapstructure:"maxAge"`
	Immutable  bool     `mapstructure:"immutable"`
}

func DefaultEdgePolicy() EdgePolicy {
	return EdgePolicy{
		AllowedOrigins: []string{
			"http://blessingsjourney.xyz",
			"https://blessingsjourney.xyz",
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		CacheRules: []CacheRule{
			{Extensions: []string{"css", "js", "woff2", "woff", "ttf"}, MaxAge: 2592000, Immutable: true},
			{Extensions: []string{"jpg", "jpeg", "png", "gif", "webp", "mp4", "webm"}, MaxAge: 5184000, Immutable: true},
			{Extensions: []string{"mp3", "wav", "ogg"}, MaxAge: 7776000, Immutable: true},
			{Extensions: []string{"html"}, MaxAge: 0},
		},
		DefaultMaxAge: 3600,
	}
}

type EdgePolicyHolder struct {
	current atomic.Value // holds EdgePolicy
}

func NewEdgePolicyHolder() (*EdgePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("payhook")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/payhook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultEdgePolicy()
		v.SetDefault("edge.allowedOrigins", defaults.AllowedOrigins)
		v.SetDefault("edge.cacheRules", defaults.CacheRules)
		v.SetDefault("edge.defaultMaxAge", defaults.DefaultMaxAge)
	}

	var policy EdgePolicy
	if err := v.UnmarshalKey("edge", &policy); err != nil {
		return nil, err
	}
	if err := validateEdgePolicy(policy); err != nil {
		return nil, err
	}

	holder := &EdgePolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EdgePolicy
		if err := v.UnmarshalKey("edge", &updated); err != nil {
			log.Printf("[edge-policy] reload failed: %v", err)
			return
		}
		if err := validateEdgePolicy(updated); err != nil {
			log.Printf("[edge-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[edge-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *EdgePolicyHolder) Get() EdgePolicy {
	return h.current.Load().(EdgePolicy)
}

// NewStaticEdgePolicyHolder wraps a fixed policy, for tests.
func NewStaticEdgePolicyHolder(policy EdgePolicy) *EdgePolicyHolder {
	holder := &EdgePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateEdgePolicy(policy EdgePolicy) error {
	if len(policy.AllowedOrigins) == 0 {
		return errors.New("edge.allowedOrigins cannot be empty")
	}
	for _, rule := range policy.CacheRules {
		if len(rule.Extensions) == 0 {
			return errors.New("edge.cacheRules entries need at least one extension")
		}
	}
	return nil
}

// MaxAgeFor resolves the cache lifetime for a request path.
// The second return reports whether the matched rule is immutable.
func (p EdgePolicy) MaxAgeFor(path string) (int, bool) {
	ext := strings.ToLower(strings.TrimPrefix(pathExt(path), "."))
	if ext != "" {
		for _, rule := range p.CacheRules {
			for _, candidate := range rule.Extensions {
				if strings.EqualFold(candidate, ext) {
					return rule.MaxAge, rule.Immutable
				}
			}
		}
	}
	if ext == "" && (path == "/" || path == "") {
		// Root serves HTML.
		return 0, false
	}
	return p.DefaultMaxAge, false
}

func pathExt(path string) string {
	if idx := strings.LastIndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	dot := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if dot <= slash {
		return ""
	}
	return path[dot:]
}
