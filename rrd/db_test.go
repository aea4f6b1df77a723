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

package rrd

import (
	"testing"
	"time"
)

func TestNewDatabase_Errors(t *testing.T) {
	cf := Average[float64]{}

	if _, err := NewDatabase[float64](cf); err == nil {
		t.Errorf("NewDatabase with no specs did not fail")
	}

	// Steps must be strictly increasing, finest first.
	_, err := NewDatabase[float64](cf,
		ArchiveSpec{Step: 10 * time.Second, Size: 10},
		ArchiveSpec{Step: time.Second, Size: 10},
	)
	if err == nil {
		t.Errorf("NewDatabase with descending steps did not fail")
	}
	_, err = NewDatabase[float64](cf,
		ArchiveSpec{Step: time.Second, Size: 10},
		ArchiveSpec{Step: time.Second, Size: 10},
	)
	if err == nil {
		t.Errorf("NewDatabase with duplicate steps did not fail")
	}

	// A bad archive spec fails the whole construction.
	db, err := NewDatabase[float64](cf,
		ArchiveSpec{Step: time.Second, Size: 10},
		ArchiveSpec{Step: 10 * time.Second, Size: 0},
	)
	if err == nil || db != nil {
		t.Errorf("NewDatabase with zero size archive: db = %v, err = %v", db, err)
	}
}

func TestDatabase_EmptyQuery(t *testing.T) {
	db, err := NewDatabase[float64](Average[float64]{},
		ArchiveSpec{Step: time.Second, Size: 10},
	)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	if _, _, ok := db.Query(time.Unix(100, 0)); ok {
		t.Errorf("query on empty database returned ok")
	}
}

func TestDatabase_Fanout(t *testing.T) {
	db, _ := NewDatabase[float64](Average[float64]{},
		ArchiveSpec{Step: time.Second, Size: 10},
		ArchiveSpec{Step: 10 * time.Second, Size: 10},
		ArchiveSpec{Step: 100 * time.Second, Size: 10},
	)
	at := time.Unix(1000, 0)
	db.AddAt(5, at)
	for i, a := range db.Archives() {
		if a.Len() != 1 {
			t.Errorf("archive %d: Len() = %d, want 1", i, a.Len())
		}
		if !a.Latest().Equal(at) {
			t.Errorf("archive %d: Latest() = %v, want %v", i, a.Latest(), at)
		}
	}
}

// A long monotonic run against a 1s/10s/100s/1000s chain: queries are
// answered by the finest archive that still covers the time, misses
// on both the future and anything older than the coarsest coverage.
func TestDatabase_QueryPrecision(t *testing.T) {
	const limit = 150000

	db, err := NewDatabase[float64](Average[float64]{Gap: GapIncoming},
		ArchiveSpec{Step: 1 * time.Second, Size: 100},
		ArchiveSpec{Step: 10 * time.Second, Size: 100},
		ArchiveSpec{Step: 100 * time.Second, Size: 100},
		ArchiveSpec{Step: 1000 * time.Second, Size: 100},
	)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}

	for i := 0; i < limit; i++ {
		db.AddAt(5.0, time.Unix(int64(i), 0))
	}

	if _, _, ok := db.Query(time.Unix(limit+1, 0)); ok {
		t.Errorf("future query returned ok")
	}

	tests := []struct {
		sec  int64
		step time.Duration
	}{
		// Edges of each archive's coverage window.
		{limit - 1, 1 * time.Second},
		{limit - 100, 1 * time.Second},
		{limit - 100 - 1, 10 * time.Second},
		{limit - 1000, 10 * time.Second},
		{limit - 1000 - 1, 100 * time.Second},
		{limit - 10000, 100 * time.Second},
		{limit - 10000 - 1, 1000 * time.Second},
		{limit - 100000, 1000 * time.Second},
	}
	for _, tc := range tests {
		slot, step, ok := db.Query(time.Unix(tc.sec, 0))
		if !ok {
			t.Errorf("query at %d: no data", tc.sec)
			continue
		}
		if step != tc.step {
			t.Errorf("query at %d: step = %v, want %v", tc.sec, step, tc.step)
		}
		if *slot != 5.0 {
			t.Errorf("query at %d: value = %v, want 5", tc.sec, *slot)
		}
	}

	// Older than the coarsest archive retains.
	if _, _, ok := db.Query(time.Unix(limit-100000-1, 0)); ok {
		t.Errorf("query older than total coverage returned ok")
	}
}

func TestArchiveSpec_Span(t *testing.T) {
	s := ArchiveSpec{Step: 30 * time.Second, Size: 10}
	if s.Span() != 5*time.Minute {
		t.Errorf("Span() = %v, want 5m", s.Span())
	}
}
