// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// autopilot.go

// This file contains the autopilot engine (C8): a 40Hz step-sequenced
// pattern player that writes into FlightState through a single-slot
// override cell instead of touching its axis fields directly. Grounded
// on the teacher's autopilot.go goroutine-per-navigation-task idiom,
// generalized from one-shot navigation targets to a finite, named
// pattern sequence with a status query.

package xr872

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const autopilotTickInterval = 25 * time.Millisecond
const overrideStaleAfter = 100 * time.Millisecond

// overrideCell is the single-slot handoff between the autopilot's 40Hz
// loop and FlightState.Snapshot's read on the control-send goroutine.
// Writes overwrite the previous value; reads see the latest write or
// report staleness, never block either side.
type overrideCell struct {
	mu        sync.Mutex
	value     Snapshot
	writtenAt time.Time
	valid     bool
}

// write stores the latest override value.
func (c *overrideCell) write(v Snapshot) {
	c.mu.Lock()
	c.value = v
	c.writtenAt = time.Now()
	c.valid = true
	c.mu.Unlock()
}

// clear marks the cell empty. Snapshot then falls back to raw stick input.
func (c *overrideCell) clear() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// read returns the last written value and whether it is both present and
// fresh (written within overrideStaleAfter).
func (c *overrideCell) read() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return Snapshot{}, false
	}
	if time.Since(c.writtenAt) > overrideStaleAfter {
		return Snapshot{}, false
	}
	return c.value, true
}

// FlightStep is one leg of a declarative pattern: a fixed stick input
// held for DurationMs milliseconds. Roll/Pitch/Throttle/Yaw are in the
// same [-100,100] units as FlightState's axes.
type FlightStep struct {
	Roll, Pitch, Throttle, Yaw float64
	DurationMs                 int
}

// Pattern is a named, finite, ordered sequence of steps.
type Pattern struct {
	Name  string
	Steps []FlightStep
}

// AutopilotStatus reports whether a pattern is running and, if so, its
// name and fractional progress through the current step (0 at the start
// of a step, approaching 1 as it completes).
type AutopilotStatus struct {
	Running  bool
	Pattern  string
	StepIdx  int
	Progress float64
}

// Autopilot runs one named Pattern at a time on a 40Hz tick, projecting
// the current step's stick values into the shared override cell. Only
// one pattern can run at a time; Start replaces whatever was running.
// A run stops itself, clearing the override, once its last step
// completes; it does not loop.
type Autopilot struct {
	logger   *logrus.Entry
	override *overrideCell

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	patternName string
	stepIdx     int
	progress    float64
}

// NewAutopilot returns an Autopilot that writes into the given override
// cell, which must be the same cell passed to FlightState.attachOverride.
func NewAutopilot(override *overrideCell, logger *logrus.Entry) *Autopilot {
	return &Autopilot{override: override, logger: logger}
}

// Start begins playing pattern on a fresh goroutine, stopping whatever
// was previously running first. The run ends on its own once the last
// step completes, or earlier if Stop is called.
func (a *Autopilot) Start(pattern Pattern) {
	a.Stop()

	a.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true
	a.patternName = pattern.Name
	a.stepIdx = 0
	a.progress = 0
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx, pattern)

	a.logger.WithField("pattern", pattern.Name).Info("autopilot started")
}

// Stop halts the running pattern, if any, and clears the override cell so
// FlightState.Snapshot reverts to raw stick input on the next read.
func (a *Autopilot) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	wasRunning := a.running
	a.running = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		a.wg.Wait()
	}
	a.override.clear()

	if wasRunning {
		a.logger.Info("autopilot stopped")
	}
}

// Status reports the current run state.
func (a *Autopilot) Status() AutopilotStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AutopilotStatus{
		Running:  a.running,
		Pattern:  a.patternName,
		StepIdx:  a.stepIdx,
		Progress: a.progress,
	}
}

func (a *Autopilot) run(ctx context.Context, pattern Pattern) {
	defer a.wg.Done()
	if len(pattern.Steps) == 0 {
		return
	}

	ticker := time.NewTicker(autopilotTickInterval)
	defer ticker.Stop()

	stepIdx := 0
	elapsedMs := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step := pattern.Steps[stepIdx]
			a.override.write(Snapshot{
				Roll:     step.Roll,
				Pitch:    step.Pitch,
				Throttle: step.Throttle,
				Yaw:      step.Yaw,
			})

			elapsedMs += int(autopilotTickInterval / time.Millisecond)

			a.mu.Lock()
			a.stepIdx = stepIdx
			if step.DurationMs > 0 {
				a.progress = float64(elapsedMs) / float64(step.DurationMs)
			}
			a.mu.Unlock()

			if elapsedMs >= step.DurationMs {
				if stepIdx == len(pattern.Steps)-1 {
					// Keep the last step in the cell for one more tick so it
					// is held for its full duration, like every other step.
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
					a.mu.Lock()
					a.cancel = nil
					a.running = false
					a.mu.Unlock()
					a.override.clear()
					a.logger.WithField("pattern", pattern.Name).Info("autopilot pattern complete")
					return
				}
				elapsedMs = 0
				stepIdx++
				a.logger.WithFields(logrus.Fields{
					"pattern": pattern.Name,
					"step":    stepIdx,
				}).Debug("autopilot advanced step")
			}
		}
	}
}
