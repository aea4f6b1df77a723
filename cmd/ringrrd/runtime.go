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

package main

import (
	"runtime"

	"github.com/shirou/gopsutil/cpu"
)

// Some rudimentary runtime stats collected here.

func runtimeMemory() uint64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return mem.Alloc
}

func runtimeCpuPercent() float64 {
	ps, _ := cpu.Percent(0, false)
	if len(ps) > 0 {
		return ps[0]
	}
	return 0
}
