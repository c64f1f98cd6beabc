// Package dispatcher implements the command dispatcher (component O): the
// control thread's handler for every decoded control message, narrowing the
// teacher's engine/systems.JobSystem worker-queue pattern down to the
// single-producer/single-consumer ordering spec.md §5 requires between the
// control thread (which decides what should happen) and the render thread
// (which is the only thread allowed to mutate the Compositor's Scinth
// list). Handle runs entirely on the control thread; anything that must
// touch the Compositor or a render context is wrapped in a closure and
// pushed onto Pending, which the render thread drains via ApplyPending
// immediately before each frame.
package dispatcher

import (
	"fmt"
	"os"
	"sync"

	"github.com/spaghettifunk/scinthd/engine/compositor"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/frametimer"
	"github.com/spaghettifunk/scinthd/engine/loader"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/scinth"
	"github.com/spaghettifunk/scinthd/engine/scinthdef"
	"github.com/spaghettifunk/scinthd/engine/shape"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
	"github.com/spaghettifunk/scinthd/engine/tween"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// Kind names one recognized command family from spec.md §4.O's table.
type Kind int

const (
	KindQuit Kind = iota
	KindStatus
	KindNotify
	KindDumpOSC
	KindErrorPolicy
	KindVersion
	KindScinthDefLoad
	KindScinthDefReceive
	KindScinthDefFree
	KindScinthNew
	KindScinthFree
	KindScinthSet
	KindScinthRun
)

// ErrorPolicy controls whether a command that fails gets an OSC error reply.
type ErrorPolicy int

const (
	ErrorSilent ErrorPolicy = iota
	ErrorPerCommand
	ErrorAll
)

// ParamValue is one ScinthSet assignment: either an immediate value, or (if
// HasTween) a ramp from the parameter's current value to Value over
// Duration seconds along Curve.
type ParamValue struct {
	Value    float32
	HasTween bool
	Duration float64
	Curve    tween.Curve
}

// Command is one decoded control message, already stripped of its transport
// framing by the wire codec (component S). Fields not relevant to Kind are
// left zero.
type Command struct {
	Kind Kind

	ReplyTo string // sender's transport address, for commands that reply

	DefName string // ScinthDefLoad/Receive/Free, ScinthNew
	Path    string // ScinthDefLoad: file path
	YAML    []byte // ScinthDefReceive: inline document bytes

	NodeID int                   // ScinthNew/Free/Set/Run
	Params map[string]ParamValue // ScinthSet
	Run    bool                  // ScinthRun

	NotifyRegister bool // Notify: true to register, false to unregister
	DumpOSCOn      bool // DumpOSC
	ErrorPolicy    ErrorPolicy
}

// ReplyKind discriminates a Reply's populated fields.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	ReplyStatus
	ReplyVersion
	ReplyError
)

// Reply is what a command handler hands back to the transport layer to
// send to ReplyTo, if anything.
type Reply struct {
	Kind           ReplyKind
	ScinthCount    int
	MeanFPS        float64
	LateFrameTotal int
	Version        string
	ErrorMessage   string
}

type registeredDef struct {
	compiled *scinthdef.Compiled
	shape    shape.Shape
}

// Dispatcher routes decoded Commands to their effect. Handle is safe to
// call repeatedly from a single control-thread receive loop; it is not
// safe to call concurrently from multiple goroutines (spec.md's model has
// exactly one control thread).
type Dispatcher struct {
	logger   *core.Logger
	version  string
	registry *vgen.Registry

	ctx            rendercontext.Context
	shaderCompiler *shadercompiler.Compiler
	samplerFactory *sampler.Factory
	numSwapImages  int
	nowFunc        func() float64

	compositor *compositor.Compositor
	frameTimer *frametimer.FrameTimer

	defsMu sync.Mutex
	defs   map[string]registeredDef

	pending chan func()

	notifyMu sync.Mutex
	notify   map[string]bool

	stateMu     sync.Mutex
	dumpOSC     bool
	errorPolicy ErrorPolicy

	quit func()
}

// New returns a Dispatcher. nowFunc supplies the clock-relative elapsed
// seconds a newly-instantiated Scinth uses as its Time-intrinsic origin;
// quit is invoked once, from Handle, on a Quit command.
func New(logger *core.Logger, version string, registry *vgen.Registry, ctx rendercontext.Context,
	compiler *shadercompiler.Compiler, factory *sampler.Factory, numSwapImages int, comp *compositor.Compositor, ft *frametimer.FrameTimer,
	nowFunc func() float64, quit func()) *Dispatcher {

	return &Dispatcher{
		logger:         logger,
		version:        version,
		registry:       registry,
		ctx:            ctx,
		shaderCompiler: compiler,
		samplerFactory: factory,
		numSwapImages:  numSwapImages,
		nowFunc:        nowFunc,
		compositor:     comp,
		frameTimer:     ft,
		defs:           make(map[string]registeredDef),
		pending:        make(chan func(), 256),
		notify:         make(map[string]bool),
		quit:           quit,
	}
}

// ApplyPending drains every closure enqueued by Handle since the last call,
// applying them in arrival order. Must be called from the render thread,
// immediately before each frame.
func (d *Dispatcher) ApplyPending() {
	for {
		select {
		case op := <-d.pending:
			op()
		default:
			return
		}
	}
}

func (d *Dispatcher) enqueue(op func()) {
	d.pending <- op
}

// Handle processes one command and returns a Reply if the command family
// produces one synchronously (Status, Version, or an error-policy-gated
// failure reply); otherwise returns (nil, nil) or (nil, err) for a
// fire-and-forget command.
func (d *Dispatcher) Handle(cmd Command) (*Reply, error) {
	switch cmd.Kind {
	case KindQuit:
		if d.quit != nil {
			d.quit()
		}
		return nil, nil

	case KindStatus:
		return &Reply{
			Kind:           ReplyStatus,
			ScinthCount:    d.compositor.Count(),
			MeanFPS:        d.frameTimer.MeanFPS(),
			LateFrameTotal: d.frameTimer.LateFrameCount(),
		}, nil

	case KindVersion:
		return &Reply{Kind: ReplyVersion, Version: d.version}, nil

	case KindNotify:
		d.notifyMu.Lock()
		if cmd.NotifyRegister {
			d.notify[cmd.ReplyTo] = true
		} else {
			delete(d.notify, cmd.ReplyTo)
		}
		d.notifyMu.Unlock()
		return nil, nil

	case KindDumpOSC:
		d.stateMu.Lock()
		d.dumpOSC = cmd.DumpOSCOn
		d.stateMu.Unlock()
		return nil, nil

	case KindErrorPolicy:
		d.stateMu.Lock()
		d.errorPolicy = cmd.ErrorPolicy
		d.stateMu.Unlock()
		return nil, nil

	case KindScinthDefLoad:
		data, err := os.ReadFile(cmd.Path)
		if err != nil {
			return d.errorReply(fmt.Errorf("dispatcher: reading %s: %w", cmd.Path, err))
		}
		return d.loadScinthDef(data)

	case KindScinthDefReceive:
		return d.loadScinthDef(cmd.YAML)

	case KindScinthDefFree:
		d.defsMu.Lock()
		delete(d.defs, cmd.DefName)
		d.defsMu.Unlock()
		return nil, nil

	case KindScinthNew:
		return d.scinthNew(cmd)

	case KindScinthFree:
		nodeID := cmd.NodeID
		d.enqueue(func() { d.compositor.Remove(nodeID) })
		return nil, nil

	case KindScinthSet:
		return d.scinthSet(cmd)

	case KindScinthRun:
		nodeID, run := cmd.NodeID, cmd.Run
		d.enqueue(func() {
			if s := d.compositor.Get(nodeID); s != nil {
				s.Run(run)
			}
		})
		return nil, nil

	default:
		// Unknown commands are logged and ignored, never replied to unless
		// the error policy is "all".
		if d.logger != nil {
			d.logger.Warnf("dispatcher: unrecognized command kind %d", cmd.Kind)
		}
		return d.protocolErrorReply(fmt.Errorf("unrecognized command"))
	}
}

func (d *Dispatcher) loadScinthDef(data []byte) (*Reply, error) {
	abstract, err := loader.ParseScinthDef(data, d.registry)
	if err != nil {
		return d.errorReply(err)
	}
	compiled, err := abstract.Build()
	if err != nil {
		return d.errorReply(err)
	}
	d.defsMu.Lock()
	d.defs[compiled.Name] = registeredDef{compiled: compiled, shape: abstract.Shape}
	d.defsMu.Unlock()
	if d.logger != nil {
		d.logger.Infof("dispatcher: registered scinthdef %q", compiled.Name)
	}
	return nil, nil
}

func (d *Dispatcher) scinthNew(cmd Command) (*Reply, error) {
	d.defsMu.Lock()
	rd, ok := d.defs[cmd.DefName]
	d.defsMu.Unlock()
	if !ok {
		return d.errorReply(core.NewError(core.KindValidation, fmt.Errorf("scinthdef %q not registered", cmd.DefName)))
	}

	nodeID := cmd.NodeID
	initial := cmd.Params
	d.enqueue(func() {
		def, err := scinth.Build(rd.compiled, rd.shape, d.shaderCompiler, d.ctx, d.samplerFactory)
		if err != nil {
			if d.logger != nil {
				d.logger.Errorf("dispatcher: scinthNew %d (%s): %v", nodeID, cmd.DefName, err)
			}
			return
		}
		now := 0.0
		if d.nowFunc != nil {
			now = d.nowFunc()
		}
		s, err := scinth.New(def, nodeID, d.numSwapImages, d.ctx, now)
		if err != nil {
			if d.logger != nil {
				d.logger.Errorf("dispatcher: scinthNew %d (%s): %v", nodeID, cmd.DefName, err)
			}
			def.Destroy()
			return
		}
		for name, pv := range initial {
			applyParam(s, name, pv, d.logger)
		}
		s.Run(true)
		d.compositor.Add(s)
	})
	return nil, nil
}

func (d *Dispatcher) scinthSet(cmd Command) (*Reply, error) {
	nodeID := cmd.NodeID
	params := cmd.Params
	logger := d.logger
	d.enqueue(func() {
		s := d.compositor.Get(nodeID)
		if s == nil {
			if logger != nil {
				logger.Warnf("dispatcher: scinthSet: node %d not found", nodeID)
			}
			return
		}
		for name, pv := range params {
			applyParam(s, name, pv, logger)
		}
	})
	return nil, nil
}

func applyParam(s *scinth.Scinth, name string, pv ParamValue, logger *core.Logger) {
	var err error
	if pv.HasTween {
		err = s.SetParameterTween(name, pv.Value, pv.Duration, pv.Curve)
	} else {
		err = s.SetParameterByName(name, pv.Value)
	}
	if err != nil && logger != nil {
		logger.Warnf("dispatcher: set parameter %q: %v", name, err)
	}
}

func (d *Dispatcher) errorReply(err error) (*Reply, error) {
	if d.logger != nil {
		d.logger.Errorf("dispatcher: %v", err)
	}
	d.stateMu.Lock()
	policy := d.errorPolicy
	d.stateMu.Unlock()
	if policy == ErrorSilent {
		return nil, err
	}
	return &Reply{Kind: ReplyError, ErrorMessage: err.Error()}, err
}

func (d *Dispatcher) protocolErrorReply(err error) (*Reply, error) {
	d.stateMu.Lock()
	policy := d.errorPolicy
	d.stateMu.Unlock()
	if policy != ErrorAll {
		return nil, err
	}
	return &Reply{Kind: ReplyError, ErrorMessage: err.Error()}, err
}
