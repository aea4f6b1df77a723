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

import "time"

// Consolidator supplies the two record-level policies an Archive does
// not want to know about: how a sample merges into the slot of the
// period it falls in, and what a slot skipped over by a gap in the
// data should hold. step is the resolution of the calling Archive,
// which lets one Consolidator serve every Archive of a Database with
// per-resolution behavior (e.g. an averaging window derived from the
// step).
//
// Consolidate merges v into slot. It runs only when the slot already
// holds at least one sample of the current period; the first sample
// of a period is stored directly.
//
// FillGap gives a skipped slot a defined value. On entry the slot
// holds a copy of the preceding slot's value, so leaving it untouched
// carries the previous period forward; writing the zero value or v
// implement zero-fill and replicate-incoming policies. The value
// FillGap leaves in the final skipped slot is overwritten when that
// slot immediately receives the incoming sample.
type Consolidator[T any] interface {
	Consolidate(step time.Duration, slot *T, v T)
	FillGap(step time.Duration, slot *T, v T)
}

// GapPolicy selects what the stock consolidators leave in a slot that
// is skipped over because no sample arrived during its period.
type GapPolicy int

const (
	GapZero     GapPolicy = iota // the zero value of the record type
	GapIncoming                  // replicate the incoming sample
	GapPrevious                  // carry the preceding slot forward
)

func fillSlot[T any](g GapPolicy, slot *T, v T) {
	switch g {
	case GapZero:
		var zero T
		*slot = zero
	case GapIncoming:
		*slot = v
	case GapPrevious:
		// the slot is pre-seeded with the preceding slot's value
	}
}

// Float is the constraint for consolidators that divide.
type Float interface {
	~float32 | ~float64
}

// Number is the constraint for consolidators that compare.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Average consolidates by running average: new = old - old/N + v/N,
// where the window N is the Archive step in seconds. A slot thus
// approximates the average of the samples seen during its period.
type Average[T Float] struct {
	Gap GapPolicy
}

func (c Average[T]) Consolidate(step time.Duration, slot *T, v T) {
	n := T(step / time.Second)
	if n < 1 {
		n = 1
	}
	*slot = *slot - *slot/n + v/n
}

func (c Average[T]) FillGap(_ time.Duration, slot *T, v T) {
	fillSlot(c.Gap, slot, v)
}

// Max consolidates by keeping the greatest sample of the period.
type Max[T Number] struct {
	Gap GapPolicy
}

func (c Max[T]) Consolidate(_ time.Duration, slot *T, v T) {
	if v > *slot {
		*slot = v
	}
}

func (c Max[T]) FillGap(_ time.Duration, slot *T, v T) {
	fillSlot(c.Gap, slot, v)
}

// Min consolidates by keeping the smallest sample of the period.
type Min[T Number] struct {
	Gap GapPolicy
}

func (c Min[T]) Consolidate(_ time.Duration, slot *T, v T) {
	if v < *slot {
		*slot = v
	}
}

func (c Min[T]) FillGap(_ time.Duration, slot *T, v T) {
	fillSlot(c.Gap, slot, v)
}

// Last consolidates by overwriting: a slot holds the last sample of
// its period.
type Last[T any] struct {
	Gap GapPolicy
}

func (c Last[T]) Consolidate(_ time.Duration, slot *T, v T) {
	*slot = v
}

func (c Last[T]) FillGap(_ time.Duration, slot *T, v T) {
	fillSlot(c.Gap, slot, v)
}

// First consolidates by keeping the first sample of the period and
// carries the previous slot forward over gaps. This suits records
// where the earliest witness wins, such as mapping a time to the
// transaction id current when the period began.
type First[T any] struct{}

func (First[T]) Consolidate(_ time.Duration, _ *T, _ T) {}

func (First[T]) FillGap(_ time.Duration, _ *T, _ T) {}
