// Copyright 2025 Poiesic Systems
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


package core

// Stage is a step of the ingestion state machine.
type Stage int

const (
	StagePending Stage = iota + 1
	StageDownloading
	StageParsing
	StageChunking
	StageEmbedding
	StageStoring
	StageCompleted
	StageError
)

var stageNames = map[Stage]string{
	StagePending:     "pending",
	StageDownloading: "downloading",
	StageParsing:     "parsing",
	StageChunking:    "chunking",
	StageEmbedding:   "embedding",
	StageStoring:     "storing",
	StageCompleted:   "completed",
	StageError:       "error",
}

// stageProgress holds the fixed progress checkpoint persisted on entry to each stage.
var stageProgress = map[Stage]int{
	StagePending:     0,
	StageDownloading: 0,
	StageParsing:     20,
	StageChunking:    40,
	StageEmbedding:   60,
	StageStoring:     80,
	StageCompleted:   100,
}

// transitions lists the legal successors of each stage.
// Error is reachable from every non-terminal stage and has no successors.
var transitions = map[Stage][]Stage{
	StagePending:     {StageDownloading, StageError},
	StageDownloading: {StageParsing, StageError},
	StageParsing:     {StageChunking, StageError},
	StageChunking:    {StageEmbedding, StageError},
	StageEmbedding:   {StageStoring, StageError},
	StageStoring:     {StageCompleted, StageError},
	StageCompleted:   nil,
	StageError:       nil,
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, bool) {
	for stage, n := range stageNames {
		if n == name {
			return stage, true
		}
	}
	return 0, false
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// Progress returns the checkpoint percentage for the stage.
// The error stage has no checkpoint of its own and returns -1; callers keep the last value.
func (s Stage) Progress() int {
	if p, ok := stageProgress[s]; ok {
		return p
	}
	return -1
}

// CanTransition reports whether next is a legal successor of s.
func (s Stage) CanTransition(next Stage) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
