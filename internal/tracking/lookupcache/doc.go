// Package lookupcache persists the tracking service's name/ID lookups to a
// local JSON file so repeated scene loads do not hammer the remote API.
//
// Only the stable mappings are memoized (asset and shot IDs, step names,
// sequence membership). Listing calls, which back menus and must reflect new
// records, always pass through to the wrapped service. A force flag bypasses
// the cache entirely for refresh commands.
//
// The cache file (default: <cache_dir>/lookup_cache.json) is human-readable
// and safe to delete at any time.
package lookupcache
