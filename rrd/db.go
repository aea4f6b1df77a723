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
	"fmt"
	"time"
)

// ArchiveSpec is the Archive definition part of a Database: Size
// slots of Step resolution each.
type ArchiveSpec struct {
	Step time.Duration
	Size int
}

// Span is the total duration covered by an Archive built to this
// spec.
func (s ArchiveSpec) Span() time.Duration {
	return s.Step * time.Duration(s.Size)
}

// Database is an ordered chain of Archives over the same record type,
// finest step first, all fed every incoming sample. The zero value is
// not usable, use NewDatabase.
type Database[T any] struct {
	archives []*Archive[T]
}

// NewDatabase builds a Database from the given specs. Specs are
// supplied finest first and their steps must be strictly increasing;
// this is the order queries walk the chain in, so that the first
// Archive covering a time is also the most precise one. All Archives
// share the one Consolidator. Construction either fully succeeds or
// returns an error with nothing retained.
func NewDatabase[T any](cf Consolidator[T], specs ...ArchiveSpec) (*Database[T], error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no archive specs")
	}
	db := &Database[T]{archives: make([]*Archive[T], 0, len(specs))}
	var prev time.Duration
	for i, spec := range specs {
		if spec.Step <= prev {
			return nil, fmt.Errorf("archive %d: step %v out of order (specs must be finest first, steps strictly increasing)", i, spec.Step)
		}
		a, err := NewArchive[T](spec.Step, spec.Size, cf)
		if err != nil {
			return nil, fmt.Errorf("archive %d: %v", i, err)
		}
		db.archives = append(db.archives, a)
		prev = spec.Step
	}
	return db, nil
}

// AddAt records sample v taken at time t into every Archive of the
// chain independently. Each Archive buckets v into its own step.
func (db *Database[T]) AddAt(v T, t time.Time) {
	for _, a := range db.archives {
		a.AddAt(v, t)
	}
}

// Add records sample v taken now.
func (db *Database[T]) Add(v T) {
	db.AddAt(v, time.Now())
}

// Query returns the slot covering time t from the finest Archive that
// still retains it, along with that Archive's step. Since the chain
// is walked finest first, the answer is always the most precise one
// available. ok is false when t is in the future, when the Database
// is empty, or when t is older than the coverage of the coarsest
// Archive. The returned pointer refers to Archive storage and is
// invalidated by the next add.
func (db *Database[T]) Query(t time.Time) (slot *T, step time.Duration, ok bool) {
	// Archives fill in lockstep, so the finest one speaks for all:
	// if it is empty they all are, and no sample anywhere is more
	// recent than its latest.
	finest := db.archives[0]
	if t.After(finest.latest) {
		return nil, 0, false
	}
	if finest.Len() == 0 {
		return nil, 0, false
	}

	for _, a := range db.archives {
		t0 := PeriodStart(t, a.step)
		begin := a.Begins()
		if !t0.Before(begin) {
			slot, _ := a.Get(int(t0.Sub(begin) / a.step))
			return slot, a.step, slot != nil
		}
	}

	// Older than everything we retain.
	return nil, 0, false
}

// Archives returns the chain, finest first.
func (db *Database[T]) Archives() []*Archive[T] {
	return db.archives
}
