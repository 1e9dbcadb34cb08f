// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

// GCPolicy controls scheduled eviction of stale persistent entries,
// the same daily-job shape internal/taskManager's retention service
// uses, adapted from "jobs older than N days" to "cache entries not
// hit in N days".
type GCPolicy struct {
	MaxAge time.Duration
	Hour   int
	Minute int
}

// StartGC registers a daily eviction job against the cache's index
// and starts the scheduler; callers keep the returned scheduler to
// shut it down.
func StartGC(c *Cache, policy GCPolicy) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(policy.Hour), uint(policy.Minute), 0))),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-policy.MaxAge)
			paths, err := c.index.EvictOlderThan(cutoff)
			if err != nil {
				log.Warnf("buildcache: gc: evict query failed: %s", err)
				return
			}
			for _, p := range paths {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					log.Warnf("buildcache: gc: removing artifact %s: %s", p, err)
				}
			}
			if len(paths) > 0 {
				log.Infof("buildcache: gc: evicted %d stale entries", len(paths))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
