//
// Copyright 2024 The ringrrd Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Ringrrd is a small daemon demonstrating fixed-memory round-robin
// series: it samples its own runtime stats into the series defined in
// a TOML config, optionally blasts synthetic series through an
// LRU-capped registry, and prints a summary of everything it retained
// on shutdown.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringrrd/ringrrd/blaster"
	"github.com/ringrrd/ringrrd/config"
	"github.com/ringrrd/ringrrd/registry"
	"github.com/ringrrd/ringrrd/rrd"
)

var defaultArchives = []rrd.ArchiveSpec{
	{Step: time.Second, Size: 60},
	{Step: 10 * time.Second, Size: 60},
	{Step: time.Minute, Size: 60},
	{Step: time.Hour, Size: 24},
}

func main() {
	var (
		cfgPath   = flag.String("cfg", "ringrrd.toml", "path of config file")
		interval  = flag.Duration("sample-interval", time.Second, "how often runtime stats are sampled")
		blastRate = flag.Int("blast-rate", 0, "synthetic samples per second (0 disables)")
		blastN    = flag.Int("blast-series", 100, "number of synthetic series")
		maxSeries = flag.Int("max-series", 1000, "cap on on-demand series (LRU evicted beyond)")
	)
	flag.Parse()

	log.SetPrefix("ringrrd: ")

	cfg, err := config.ReadConfig(*cfgPath)
	if err != nil {
		log.Printf("No usable config (%v), using built-in runtime series only.", err)
		cfg = &config.Config{}
	}

	reg := registry.New[float64](true)
	for _, s := range cfg.Series {
		db, err := s.Database()
		if err != nil {
			log.Fatalf("Bad series definition: %v", err)
		}
		reg.Insert(s.Name, db)
		log.Printf("Series %q: %d archive(s), finest step %v.", s.Name, len(db.Archives()), db.Archives()[0].Step())
	}

	// Runtime self-stats always exist, config or not.
	for _, name := range []string{"runtime.cpu.percent", "runtime.mem.alloc"} {
		if reg.Get(name) == nil {
			db, err := rrd.NewDatabase[float64](rrd.Average[float64]{}, defaultArchives...)
			if err != nil {
				log.Fatalf("default archives: %v", err)
			}
			reg.Insert(name, db)
		}
	}

	// On-demand series (the blaster invents names) live in an
	// LRU-capped cache so memory stays bounded.
	cache := registry.NewCache[float64](*maxSeries)
	if *blastRate > 0 {
		b := blaster.New(&cacheSink{cache: cache})
		b.SetNSeries(*blastN)
		b.SetRate(*blastRate)
	}

	go sampleRuntime(reg, *interval)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Serving. Sampling runtime stats every %v, SIGINT/SIGTERM for a summary and exit.", *interval)
	<-ch

	dumpSummary(reg)
	hits, misses, evictions := cache.Stats()
	if hits+misses > 0 {
		log.Printf("On-demand series: %d live, %d hits, %d misses, %d evictions.", cache.Len(), hits, misses, evictions)
	}
}

// sampleRuntime is the single writer for the registry's databases.
func sampleRuntime(reg *registry.Registry[float64], interval time.Duration) {
	for {
		time.Sleep(interval)
		now := time.Now()
		if db := reg.Get("runtime.cpu.percent"); db != nil {
			db.AddAt(runtimeCpuPercent(), now)
		}
		if db := reg.Get("runtime.mem.alloc"); db != nil {
			db.AddAt(float64(runtimeMemory()), now)
		}
	}
}

// cacheSink feeds blaster samples into LRU-capped on-demand series.
type cacheSink struct {
	cache *registry.Cache[float64]
}

func (s *cacheSink) QueueSample(name string, ts time.Time, v float64) {
	db, err := s.cache.FetchOrCreate(name, func() (*rrd.Database[float64], error) {
		return rrd.NewDatabase[float64](rrd.Average[float64]{}, defaultArchives...)
	})
	if err != nil {
		log.Printf("On-demand series %q: %v", name, err)
		return
	}
	db.AddAt(v, ts)
}

func dumpSummary(reg *registry.Registry[float64]) {
	for _, name := range reg.Names() {
		db := reg.Get(name)
		finest := db.Archives()[0]
		if finest.Len() == 0 {
			log.Printf("%s: no data.", name)
			continue
		}
		line := fmt.Sprintf("%s: latest %v", name, finest.Latest().Format(time.RFC3339))
		for _, a := range db.Archives() {
			if slot, ok := a.Get(a.Len() - 1); ok {
				line += fmt.Sprintf("  [%v x %d/%d: %.4g]", a.Step(), a.Len(), a.Size(), *slot)
			}
		}
		log.Print(line)
	}
}
