// Package config loads the semcache configuration.
//
// One file serves both sides of a deployment. The relay uses the nats,
// lifecycle and metrics sections. Cache-owning processes load the same file
// and build their caches from the cache section:
//
//	cfg, err := config.NewLoader().LoadFile("semcache.json")
//	if err != nil {
//		return err
//	}
//	c, err := cache.NewFromConfig[[]byte](cfg.Cache, source, registry)
//
// Loader starts from Default, merges each JSON layer in order (later layers
// win, nested objects are merged key by key) and then applies environment
// overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.json")
//	loader.AddLayer("configs/production.json")
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Duration fields accept Go duration strings ("2s", "500ms"), a day suffix
// ("1d") or integer nanoseconds.
//
// # Environment Variable Overrides
//
//	SEMCACHE_NATS_URLS                comma-separated server list
//	SEMCACHE_NATS_NAME                connection name
//	SEMCACHE_LIFECYCLE_SUBJECT_PREFIX subject prefix for lifecycle signals
//	SEMCACHE_CACHE_COUNT_LIMIT        default cache count limit
//	SEMCACHE_METRICS_PORT             Prometheus port
//	SEMCACHE_PRESSURE_THRESHOLD       PSI avg10 threshold
//
// # Security
//
// Config files must be regular .json files under 1MB with bounded nesting.
// Relative paths may not escape the working directory.
package config
