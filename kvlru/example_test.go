/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru_test

import (
	"context"
	"fmt"
	"log"

	"github.com/acronis/go-kvlru/kvlru"
	"github.com/acronis/go-kvlru/kvstore/memstore"
)

func Example() {
	const metricsNamespace = "myservice"

	type User struct {
		ID   int
		Name string
	}

	ctx := context.Background()

	// Make, configure and register Prometheus metrics collector.
	metricsCollector := kvlru.NewPrometheusMetricsWithOpts(kvlru.PrometheusMetricsOpts{Namespace: metricsNamespace})
	metricsCollector.MustRegister()
	defer metricsCollector.Unregister()

	// Make LRU cache for storing maximum 2 users in the store.
	// In production, a store from the kvstore/backends package (memcached, Redis, etc.) is used instead.
	cache, err := kvlru.New[string, User](memstore.New(), 2, metricsCollector)
	if err != nil {
		log.Fatal(err)
	}

	for _, u := range []User{{1, "John"}, {2, "Ann"}, {3, "Bob"}} {
		if err = cache.Set(ctx, fmt.Sprintf("user:%d", u.ID), u); err != nil {
			log.Fatal(err)
		}
	}

	// The first user is evicted as the least recently used one.
	if _, found, _ := cache.Get(ctx, "user:1"); !found {
		fmt.Println("user:1 is not found")
	}
	if user, found, _ := cache.Get(ctx, "user:2"); found {
		fmt.Printf("%d, %s\n", user.ID, user.Name)
	}

	keys, err := cache.Keys(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(keys)

	// Output:
	// user:1 is not found
	// 2, Ann
	// [user:2 user:3]
}
