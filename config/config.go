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

// Package config reads TOML definitions of round-robin series. A
// series is a named Database: a consolidation function, a gap policy
// and a list of archives given as "step:span" strings, finest first,
// e.g.
//
//	[[series]]
//	name = "cpu.percent"
//	function = "average"
//	gap = "zero"
//	archives = ["1s:1min", "10s:10min", "1min:1h", "1h:7d"]
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ringrrd/ringrrd/rrd"
)

type Config struct {
	Series []SeriesSpec `toml:"series"`
}

// SeriesSpec describes one named Database.
type SeriesSpec struct {
	Name     string
	Function string     // average, min, max, last, first
	Gap      string     // zero, incoming, previous ("" = zero)
	Archives []ArchSpec // finest first
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = betterParseDuration(string(text))
	return err
}

// betterParseDuration is time.ParseDuration which also accepts min,
// hour, d, w and y units.
func betterParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "min") {
		s = s[0 : len(s)-2] // min -> m
	} else if strings.HasSuffix(s, "hour") {
		s = s[0 : len(s)-3] // hour -> h
	}
	if d, err := time.ParseDuration(s); err != nil {
		if strings.HasPrefix(err.Error(), "time: unknown unit ") {
			d, _ := strconv.ParseInt(s[0:len(s)-1], 10, 64)
			if strings.HasPrefix(err.Error(), `time: unknown unit "d" in`) {
				return time.Duration(d*24) * time.Hour, nil
			} else if strings.HasPrefix(err.Error(), `time: unknown unit "w" in`) {
				return time.Duration(d*168) * time.Hour, nil
			} else if strings.HasPrefix(err.Error(), `time: unknown unit "y" in`) {
				return time.Duration(d*8760) * time.Hour, nil
			}
		}
		return d, err
	} else {
		return d, nil
	}
}

// ArchSpec is an rrd.ArchiveSpec read from a "step:span" string. A
// span that is not a multiple of the step is rounded down with a log
// line, the way surprising-but-salvageable config has always been
// treated here.
type ArchSpec struct {
	rrd.ArchiveSpec
}

func (a *ArchSpec) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid archive spec %q (want step:span)", string(text))
	}
	step, err := betterParseDuration(parts[0])
	if err != nil {
		return fmt.Errorf("invalid step: %q (%v)", parts[0], err)
	}
	if step <= 0 {
		return fmt.Errorf("invalid step: %q (must be positive)", parts[0])
	}
	span, err := betterParseDuration(parts[1])
	if err != nil {
		return fmt.Errorf("invalid span: %q (%v)", parts[1], err)
	}
	if span%step != 0 {
		adjusted := span / step * step
		log.Printf("Span (%q) is not a multiple of step (%q), auto adjusting span to %v.", parts[1], parts[0], adjusted)
		span = adjusted
	}
	if span < step {
		return fmt.Errorf("invalid span %q: shorter than one step %q", parts[1], parts[0])
	}
	a.Step = step
	a.Size = int(span / step)
	return nil
}

// ReadConfig reads and decodes the TOML file at path.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		log.Printf("Unable to read config: %s.", err)
		return nil, err
	}
	log.Printf("Read config file: '%s'.", path)
	return cfg, nil
}

// Consolidator returns the rrd.Consolidator this spec names.
func (s *SeriesSpec) Consolidator() (rrd.Consolidator[float64], error) {
	var gap rrd.GapPolicy
	switch strings.ToLower(s.Gap) {
	case "", "zero":
		gap = rrd.GapZero
	case "incoming":
		gap = rrd.GapIncoming
	case "previous":
		gap = rrd.GapPrevious
	default:
		return nil, fmt.Errorf("series %q: invalid gap: %q (valid: zero, incoming, previous)", s.Name, s.Gap)
	}
	switch strings.ToLower(s.Function) {
	case "average":
		return rrd.Average[float64]{Gap: gap}, nil
	case "min":
		return rrd.Min[float64]{Gap: gap}, nil
	case "max":
		return rrd.Max[float64]{Gap: gap}, nil
	case "last":
		return rrd.Last[float64]{Gap: gap}, nil
	case "first":
		return rrd.First[float64]{}, nil
	}
	return nil, fmt.Errorf("series %q: invalid function: %q (valid: average, min, max, last, first)", s.Name, s.Function)
}

// Database builds the Database this spec describes. Archives must be
// listed finest first.
func (s *SeriesSpec) Database() (*rrd.Database[float64], error) {
	if s.Name == "" {
		return nil, fmt.Errorf("series with empty name")
	}
	cf, err := s.Consolidator()
	if err != nil {
		return nil, err
	}
	specs := make([]rrd.ArchiveSpec, len(s.Archives))
	for i, a := range s.Archives {
		specs[i] = a.ArchiveSpec
	}
	db, err := rrd.NewDatabase[float64](cf, specs...)
	if err != nil {
		return nil, fmt.Errorf("series %q: %v", s.Name, err)
	}
	return db, nil
}
