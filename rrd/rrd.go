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

// Package rrd maintains fixed-memory, multi-resolution time series as
// round-robin archives.
//
// Throughout documentation and code the following terms are used:
//
// Archive: a fixed-capacity circular buffer of fixed-size records
// ("slots"), bucketed by a fixed step. An Archive holding 60 slots at
// a step of one second retains the most recent minute of data, one
// record per second. Once full, every new period evicts the oldest
// slot.
//
// Step: the duration of one slot, also called the resolution of the
// Archive.
//
// Slot: one record of the Archive, covering one step-aligned period
// of time. Slots are addressed by a logical index, 0 being the oldest
// retained slot.
//
// Database: an ordered chain of Archives over the same record type,
// finest step first, all fed every incoming sample. It retains long
// history in fixed memory by answering queries from the finest
// Archive that still covers the requested time: recent times are
// answered at fine resolution, older times at progressively coarser
// resolution.
//
// Consolidation: how a sample landing in the current (not yet
// complete) slot is merged with what the slot already holds. The
// package does not interpret record contents; consolidation and gap
// filling are supplied by the caller as a Consolidator.
//
// A walk through the life of an Archive with a step of 10s and 4
// slots:
//
//	a @ 0:03     [a _ _ _]      slot covers 0:00-0:10
//	b @ 0:07     [ab _ _ _]     consolidated into the same slot
//	c @ 0:12     [ab c _ _]     new period, next slot
//	d @ 0:45     [c g g d]      0:20 and 0:30 gap-filled, 0:00 evicted
//
// Samples must arrive in non-decreasing time order; a sample earlier
// than the last accepted one is silently dropped. This is a contract,
// not an error: out-of-order stragglers are a normal occurrence and
// simply carry no weight.
//
// Nothing in this package locks. An Archive or Database must have a
// single writer; concurrent readers require external serialization
// against that writer. The cost of an add is O(1) except when the
// incoming time stamp skips ahead, in which case it is proportional
// to the number of whole periods skipped (a far-future time stamp
// walks the whole ring).
package rrd

import (
	"fmt"
	"time"
)

// Archive is a single fixed-capacity circular buffer of records of
// type T, bucketed by a fixed step. The zero value is not usable, use
// NewArchive.
type Archive[T any] struct {
	step  time.Duration
	size  int
	slots []T

	// head is the physical index of the oldest retained slot, tail of
	// the most recently written one. Both are -1 when the archive is
	// empty, otherwise both are in [0, size).
	head int
	tail int

	// start is the step-aligned begin time of the slot at tail.
	// latest is the time stamp of the most recent accepted sample,
	// not aligned. latest never precedes start once non-empty.
	start  time.Time
	latest time.Time

	cf Consolidator[T]
}

// NewArchive returns an empty Archive of size slots of step
// resolution. The Consolidator is fixed for the life of the Archive.
// Construction is the only operation that can fail.
func NewArchive[T any](step time.Duration, size int, cf Consolidator[T]) (*Archive[T], error) {
	if step <= 0 {
		return nil, fmt.Errorf("invalid step: %v (must be positive)", step)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid size: %d (must be positive)", size)
	}
	if cf == nil {
		return nil, fmt.Errorf("nil consolidator")
	}
	return &Archive[T]{
		step:  step,
		size:  size,
		slots: make([]T, size),
		head:  -1,
		tail:  -1,
		cf:    cf,
	}, nil
}

// PeriodStart returns t floored to the nearest multiple of step at or
// below it, i.e. the begin time of the period t falls in. Periods are
// aligned on the Unix epoch. Times before the epoch are out of scope.
func PeriodStart(t time.Time, step time.Duration) time.Time {
	rem := t.UnixNano() % step.Nanoseconds()
	return time.Unix(0, t.UnixNano()-rem)
}

// AddAt records sample v taken at time t. A t earlier than the time
// of the last accepted sample is silently dropped. If v lands in the
// period currently being accumulated it is merged via the
// Consolidator; if one or more whole periods have elapsed since the
// last sample, the ring advances over them, FillGap gives each
// skipped slot a defined value, and v is then stored in the final
// slot as-is.
func (a *Archive[T]) AddAt(v T, t time.Time) {
	t0 := PeriodStart(t, a.step)

	// First sample into an empty archive is simply stored.
	if a.tail < 0 {
		a.head, a.tail = 0, 0
		a.slots[0] = v
		a.start, a.latest = t0, t
		return
	}

	// Cannot go back in time.
	if t.Before(a.latest) {
		return
	}

	// Still in the current period.
	if t0.Equal(a.start) {
		a.cf.Consolidate(a.step, &a.slots[a.tail], v)
		a.latest = t
		return
	}

	// One or more whole periods ahead. Advance the ring over every
	// skipped period, letting FillGap define each newly exposed slot,
	// then store v over the last one. Every slot the archive ever
	// exposes has thus been through FillGap at least once, and
	// FillGap may rely on the preceding slot holding a valid value:
	// the slot is pre-seeded with a copy of it, so a no-op FillGap
	// amounts to carry-forward.
	for a.start.Before(t0) {
		a.advance()
		a.slots[a.tail] = a.slots[(a.tail-1+a.size)%a.size]
		a.cf.FillGap(a.step, &a.slots[a.tail], v)
	}
	a.slots[a.tail] = v
	a.latest = t
}

// Add records sample v taken now.
func (a *Archive[T]) Add(v T) {
	a.AddAt(v, time.Now())
}

// advance moves tail forward one slot, wrapping at size. If tail
// catches up with head the archive is full and the oldest slot is
// evicted by bumping head as well.
func (a *Archive[T]) advance() {
	a.tail++
	if a.tail >= a.size {
		a.tail = 0
	}
	if a.tail == a.head {
		a.head++
		if a.head >= a.size {
			a.head = 0
		}
	}
	a.start = a.start.Add(a.step)
}

// Len returns the number of retained slots, 0 to Size.
func (a *Archive[T]) Len() int {
	if a.tail < 0 {
		return 0
	}
	if a.head <= a.tail {
		return a.tail - a.head + 1
	}
	return a.size - a.head + a.tail + 1
}

// Get returns the slot at logical index i, 0 being the oldest
// retained slot and Len()-1 the most recent. The returned pointer
// refers to the Archive's storage and is invalidated by the next add.
// ok is false when i is out of range.
func (a *Archive[T]) Get(i int) (slot *T, ok bool) {
	if i < 0 || i >= a.Len() {
		return nil, false
	}
	return &a.slots[(a.head+i)%a.size], true
}

// Step is the resolution of this Archive.
func (a *Archive[T]) Step() time.Duration { return a.step }

// Size is the maximum number of slots.
func (a *Archive[T]) Size() int { return a.size }

// Start returns the step-aligned begin time of the period currently
// being accumulated. Zero time when empty.
func (a *Archive[T]) Start() time.Time { return a.start }

// Latest returns the time stamp of the most recent accepted sample.
// Zero time when empty.
func (a *Archive[T]) Latest() time.Time { return a.latest }

// Begins returns the begin time of the oldest retained slot, i.e. the
// start of this Archive's coverage window. Zero time when empty.
func (a *Archive[T]) Begins() time.Time {
	if a.tail < 0 {
		return time.Time{}
	}
	return a.start.Add(-a.step * time.Duration(a.Len()-1))
}

// SlotTime returns the begin time of the period covered by the slot
// at logical index i: Begins() + i*Step(). Meaningless for an empty
// archive.
func (a *Archive[T]) SlotTime(i int) time.Time {
	return a.Begins().Add(a.step * time.Duration(i))
}
