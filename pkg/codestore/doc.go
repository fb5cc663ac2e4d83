// Package codestore holds short-lived values with per-key expiry: delivered
// one-time codes, resend cool-down markers and bot linking tokens.
//
// Two backends are provided. RedisStore relies on native key TTLs and runs
// CompareAndDelete as a Lua script so consumption is atomic across processes.
// InMemStore is a single-process map with lazy expiry, used for development
// and tests.
//
//	store, err := codestore.NewStore("redis", codestore.StoreConfig{Client: rdb})
package codestore
