package interp

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("interp")

// monotonicNow returns a monotonic clock reading suitable for compute-deadline arithmetic. time.Now()
// already carries a monotonic reading on every supported platform (see the time package docs), so
// subtracting two values computed this way is immune to wall-clock adjustments.
func monotonicNow() time.Time { return time.Now() }

func itoa(i int) string { return strconv.Itoa(i) }

// A Capability is a token the host grants enabling a class of side-effecting operations (spec
// §3's "Capability", §4.6's gate table).
type Capability string

const (
	CapBoto3    Capability = "boto3"
	CapSQL      Capability = "sql"
	CapNetwork  Capability = "network"
	CapFilesystem Capability = "filesystem"
)

// ProfileData mirrors spec §3's `profile` field: per-line and per-call counters, populated only
// when a Context is constructed with profiling enabled.
type ProfileData struct {
	LineCounts map[string]uint64
	CallCounts map[string]uint64
	CallMicros map[string]uint64
}

func newProfileData() *ProfileData {
	return &ProfileData{
		LineCounts: map[string]uint64{},
		CallCounts: map[string]uint64{},
		CallMicros: map[string]uint64{},
	}
}

// Context is the per-run state carrier threaded through every evaluation step (spec §3 "Context",
// §4.6). It is the Go analogue of the teacher's scope-held pyConfig, generalized from "the BUILD
// file's config block" to the full host-supplied capability/deadline/effect-capture surface this
// spec requires. Only the evaluator mutates it; callers outside internal/interp only read it back
// after Run returns.
type Context struct {
	Filesystem   Filesystem
	Environ      map[string]string
	Capabilities map[Capability]bool
	AllowedHosts []string
	HostModules  map[string]pyObject

	TimeoutNS        int64
	computeNS        int64
	computeStartedAt time.Time
	running          bool

	outputBuffer []string
	fileOps      int
	Profile      *ProfileData

	moduleCache map[string]pyObject
	parseCache  map[[32]byte]*FileInput
	classes     map[string]*pyClass
}

// NewContext constructs a Context with no capabilities granted and no timeout, matching spec
// §4.6's description of a context as something the host builds up explicitly field by field.
func NewContext() *Context {
	ctx := &Context{
		Environ:      map[string]string{},
		Capabilities: map[Capability]bool{},
		HostModules:  map[string]pyObject{},
		moduleCache:  map[string]pyObject{},
		parseCache:   map[[32]byte]*FileInput{},
		classes:      map[string]*pyClass{},
	}
	bootstrapClasses(ctx)
	return ctx
}

// WithCapability grants cap, returning ctx for chaining; matches the host-construction idiom
// described in spec §4.6.
func (ctx *Context) WithCapability(cap Capability) *Context {
	log.Debugf("granting capability %q", cap)
	ctx.Capabilities[cap] = true
	return ctx
}

// WithTimeout sets the compute budget in nanoseconds (spec §5.1).
func (ctx *Context) WithTimeout(d time.Duration) *Context {
	log.Debugf("setting compute timeout to %s", d)
	ctx.TimeoutNS = int64(d)
	return ctx
}

func (ctx *Context) hasCapability(cap Capability) bool {
	return ctx.Capabilities[cap]
}

// startCompute begins the running-compute phase; called once at the top of Run.
func (ctx *Context) startCompute() {
	ctx.computeStartedAt = monotonicNow()
	ctx.running = true
}

// pauseCompute brackets host-invoked I/O (spec §5.1): wall time since the last resume is folded
// into the accumulated budget and the clock is marked paused.
func (ctx *Context) pauseCompute() {
	if !ctx.running {
		return
	}
	ctx.computeNS += int64(monotonicNow().Sub(ctx.computeStartedAt))
	ctx.running = false
}

// resumeCompute ends an I/O pause and restarts the running-compute clock.
func (ctx *Context) resumeCompute() {
	if ctx.running {
		return
	}
	ctx.computeStartedAt = monotonicNow()
	ctx.running = true
}

// checkDeadline is called before executing each statement and before each loop iteration (spec
// §5.1); it panics a *timeoutSignal once the accumulated compute time exceeds TimeoutNS.
func (ctx *Context) checkDeadline() {
	if ctx.TimeoutNS <= 0 {
		return
	}
	elapsed := ctx.computeNS
	if ctx.running {
		elapsed += int64(monotonicNow().Sub(ctx.computeStartedAt))
	}
	if elapsed > ctx.TimeoutNS {
		log.Warningf("compute deadline tripped: %dns elapsed against a %dns budget", elapsed, ctx.TimeoutNS)
		panic(ctx.newTimeoutSignal())
	}
}

// ComputeNS reports the accumulated compute-clock budget spent so far (spec §3's `compute_ns`).
func (ctx *Context) ComputeNS() int64 { return ctx.computeNS }

// Write appends a chunk to the captured stdout buffer (spec §3's `output_buffer`), called by the
// builtin `print`.
func (ctx *Context) Write(chunk string) {
	ctx.outputBuffer = append(ctx.outputBuffer, chunk)
}

// Output flattens the captured stdout buffer, newline-joined in write order (spec §5's ordering
// invariant on `output_buffer`).
func (ctx *Context) Output() string {
	return strings.Join(ctx.outputBuffer, "\n")
}

// recordFileOp increments the file-operation counter (spec §3's `file_ops`).
func (ctx *Context) recordFileOp() { ctx.fileOps++ }

// FileOps reports the number of filesystem operations performed so far.
func (ctx *Context) FileOps() int { return ctx.fileOps }

// recordCall updates per-call profiling counters, a no-op unless Profile is non-nil.
func (ctx *Context) recordCall(name string, micros uint64) {
	if ctx.Profile == nil {
		return
	}
	ctx.Profile.CallCounts[name]++
	ctx.Profile.CallMicros[name] += micros
}

// recordLine updates the per-line profiling counter, a no-op unless Profile is non-nil.
func (ctx *Context) recordLine(module string, line int) {
	if ctx.Profile == nil {
		return
	}
	ctx.Profile.LineCounts[module+":"+itoa(line)]++
}
