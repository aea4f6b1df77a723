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

func TestAverage_Consolidate(t *testing.T) {
	var slot float64 = 15
	cf := Average[float64]{}
	cf.Consolidate(30*time.Second, &slot, 8)
	if want := 15 - 15.0/30 + 8.0/30; slot != want {
		t.Errorf("slot = %v, want %v", slot, want)
	}

	// Sub-second steps clamp the window to 1, i.e. the incoming
	// sample replaces the slot.
	slot = 15
	cf.Consolidate(100*time.Millisecond, &slot, 8)
	if slot != 8 {
		t.Errorf("slot = %v, want 8", slot)
	}
}

func TestMinMaxLast_Consolidate(t *testing.T) {
	var slot int64 = 10

	Max[int64]{}.Consolidate(0, &slot, 7)
	if slot != 10 {
		t.Errorf("Max kept %v, want 10", slot)
	}
	Max[int64]{}.Consolidate(0, &slot, 12)
	if slot != 12 {
		t.Errorf("Max kept %v, want 12", slot)
	}

	Min[int64]{}.Consolidate(0, &slot, 20)
	if slot != 12 {
		t.Errorf("Min kept %v, want 12", slot)
	}
	Min[int64]{}.Consolidate(0, &slot, 3)
	if slot != 3 {
		t.Errorf("Min kept %v, want 3", slot)
	}

	Last[int64]{}.Consolidate(0, &slot, 99)
	if slot != 99 {
		t.Errorf("Last kept %v, want 99", slot)
	}
}

func TestGapPolicies(t *testing.T) {
	// FillGap sees the slot pre-seeded with the previous slot's
	// value, the way Archive.AddAt calls it.
	const prev, incoming = 42.0, 7.0

	slot := prev
	Last[float64]{Gap: GapZero}.FillGap(0, &slot, incoming)
	if slot != 0 {
		t.Errorf("GapZero left %v", slot)
	}

	slot = prev
	Last[float64]{Gap: GapIncoming}.FillGap(0, &slot, incoming)
	if slot != incoming {
		t.Errorf("GapIncoming left %v", slot)
	}

	slot = prev
	Last[float64]{Gap: GapPrevious}.FillGap(0, &slot, incoming)
	if slot != prev {
		t.Errorf("GapPrevious left %v", slot)
	}
}

// First over a gap carries the previous period forward: the use case
// of mapping times to the transaction id open when the period began.
func TestFirst_CarryForward(t *testing.T) {
	a, _ := NewArchive[uint64](time.Minute, 10, First[uint64]{})

	a.AddAt(100, time.Unix(0, 0))
	a.AddAt(200, time.Unix(30, 0))  // same period: first wins
	a.AddAt(300, time.Unix(250, 0)) // skips periods 60, 120, 180

	want := []uint64{100, 100, 100, 100, 300}
	if a.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", a.Len(), len(want))
	}
	for i, w := range want {
		if slot, _ := a.Get(i); *slot != w {
			t.Errorf("Get(%d) = %v, want %v", i, *slot, w)
		}
	}
}
