// Package server implements the server skeleton (component P): it wires
// the config, vgen/ScinthDef loader, dispatcher, compositor, render
// context, and offscreen engine together and owns the process's two
// threads of record — the UDP control-thread receive loop (spec.md §5)
// and the render thread driven by the offscreen engine. Grounded on the
// teacher's main.go/engine.go wiring shape and signal-handling pattern,
// generalized from one hardcoded testbed game to a configuration-driven
// ScintillatorSynth server.
package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/spaghettifunk/scinthd/engine/audiobridge"
	"github.com/spaghettifunk/scinthd/engine/compositor"
	"github.com/spaghettifunk/scinthd/engine/config"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/dispatcher"
	"github.com/spaghettifunk/scinthd/engine/encode"
	"github.com/spaghettifunk/scinthd/engine/frametimer"
	"github.com/spaghettifunk/scinthd/engine/loader"
	"github.com/spaghettifunk/scinthd/engine/offscreen"
	"github.com/spaghettifunk/scinthd/engine/osc"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// Server is one running ScintillatorSynth instance: a UDP control socket
// on the control thread, and a render loop on the render thread, bridged
// by the dispatcher's pending-command queue exactly as spec.md §5
// describes.
type Server struct {
	cfg    config.Config
	logger *core.Logger

	conn       *net.UDPConn
	registry   *vgen.Registry
	dispatcher *dispatcher.Dispatcher
	compositor *compositor.Compositor
	frameTimer *frametimer.FrameTimer
	render     rendercontext.Context
	compiler   *shadercompiler.Compiler
	offscreen  *offscreen.Engine
	watcher    *loader.Watcher
	audio      *audiobridge.Bridge

	quitCh chan struct{}

	freeRunWg   sync.WaitGroup
	freeRunStop chan struct{}

	// Ready, if non-nil, receives the bound socket address once Run has
	// finished binding it. Buffered by the caller; New never allocates it,
	// since production callers don't need it (cfg.UDPPort is already known)
	// and it exists mainly so tests can bind to port 0 and discover what
	// the OS picked.
	Ready chan *net.UDPAddr
}

// New builds a Server from cfg but does not yet bind its socket or start
// any goroutine; call Run for that.
//
// The render context is always NoopContext today: component T's
// Vulkan-backed realization has not landed, so both --offscreen and
// windowed configurations currently render into the same zeroed-buffer
// stand-in. Swapping NewNoopContext for a real Vulkan context here is the
// entire integration point once that realization exists — nothing else in
// this package or in dispatcher/compositor/offscreen needs to change.
func New(cfg config.Config, logger *core.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = core.Default()
	}
	render := rendercontext.NewNoopContext()
	compiler := shadercompiler.New(cfg.GlslcPath, logger)
	samplerFactory := sampler.NewFactory(render, logger)
	registry := vgen.NewRegistry()
	comp := compositor.New(render, logger)
	ft := frametimer.New(true, logger)
	audio := audiobridge.New(4096)
	comp.SetAudioBridge(audio)

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		compositor: comp,
		frameTimer: ft,
		render:     render,
		compiler:   compiler,
		audio:      audio,
		quitCh:     make(chan struct{}),
	}

	s.dispatcher = dispatcher.New(logger, version, registry, render, compiler, samplerFactory, cfg.NumImages, comp, ft, ft.ElapsedTime, s.requestQuit)

	watcher, err := loader.New(logger, cfg.VGenDir, cfg.ScinthDefDir, registry, s.onScinthDefFile)
	if err != nil {
		return nil, err
	}
	s.watcher = watcher

	offEngine, err := offscreen.New(render, comp, logger, cfg.Width, cfg.Height, cfg.NumImages)
	if err != nil {
		return nil, err
	}
	offEngine.BeforeTick = s.dispatcher.ApplyPending
	offEngine.AfterTick = s.markFrame
	if cfg.Offscreen {
		enc, err := encode.NewPNGSequenceEncoder("frames", "frame")
		if err != nil {
			return nil, err
		}
		offEngine.AddEncoder(enc)
	}
	s.offscreen = offEngine

	return s, nil
}

func (s *Server) markFrame() {
	s.frameTimer.MarkFrame()
}

// WriteAudioSamples forwards samples to the audio sample bridge (component
// V). No producer ships in this package (spec.md §1 excludes audio I/O);
// this exists so an embedder that does have one can feed it without reaching
// into Server's internals.
func (s *Server) WriteAudioSamples(samples []float32) {
	s.audio.Write(samples)
}

// onScinthDefFile is the Watcher's callback for a changed ScinthDef
// document: it runs the same parse-and-register path a ScinthDefLoad
// control command does, since both ultimately hand raw YAML bytes to the
// dispatcher.
func (s *Server) onScinthDefFile(path string, doc []byte) {
	if _, err := s.dispatcher.Handle(dispatcher.Command{Kind: dispatcher.KindScinthDefReceive, YAML: doc}); err != nil {
		s.logger.Errorf("server: loading scinthdef %s: %v", path, err)
	}
}

func (s *Server) requestQuit() {
	select {
	case <-s.quitCh:
	default:
		close(s.quitCh)
	}
}

// Run binds the control socket, starts the render thread and the
// directory watcher, and blocks the calling goroutine on the UDP receive
// loop until a Quit command (or an external call to Shutdown) closes the
// socket.
func (s *Server) Run() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.BindAddress), Port: s.cfg.UDPPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return core.NewError(core.KindRuntime, fmt.Errorf("server: binding %s:%d: %w", s.cfg.BindAddress, s.cfg.UDPPort, err))
	}
	s.conn = conn
	if s.Ready != nil {
		s.Ready <- conn.LocalAddr().(*net.UDPAddr)
	}

	s.watcher.LoadAll()
	if err := s.watcher.Start(); err != nil {
		s.logger.Warnf("server: directory watcher: %v", err)
	}

	s.frameTimer.Start()
	switch {
	case s.cfg.FrameRate > 0:
		s.offscreen.Start(s.cfg.FrameRate)
	case s.cfg.FrameRate < 0:
		s.startFreeRun()
	default:
		// FrameRate == 0: fully manual. Nothing drives the render thread
		// automatically; a collaborator embedding this package calls
		// Engine.RenderFrame directly (e.g. from a test harness or a batch
		// rendering tool), which is why this branch does nothing.
	}

	go func() {
		<-s.quitCh
		_ = s.conn.Close()
	}()

	s.logger.Infof("server: listening on %s:%d", s.cfg.BindAddress, s.cfg.UDPPort)
	s.receiveLoop()

	if s.cfg.FrameRate < 0 {
		s.stopFreeRun()
	} else {
		s.offscreen.Stop()
	}
	s.offscreen.Destroy()
	s.watcher.Stop()
	return nil
}

// startFreeRun drives the render thread as fast as possible rather than at
// a fixed rate, for --frame_rate -1: each iteration renders with the
// actual wall-clock delta since the previous one, so the FrameTimer's
// late-frame detector still has a meaningful baseline to compare against.
func (s *Server) startFreeRun() {
	s.freeRunStop = make(chan struct{})
	s.freeRunWg.Add(1)
	go func() {
		defer s.freeRunWg.Done()
		last := time.Now()
		for {
			select {
			case <-s.freeRunStop:
				return
			default:
			}
			now := time.Now()
			dt := now.Sub(last).Seconds()
			last = now
			if err := s.offscreen.RenderFrame(dt); err != nil {
				s.logger.Errorf("server: free-run frame: %v", err)
			}
		}
	}()
}

func (s *Server) stopFreeRun() {
	close(s.freeRunStop)
	s.freeRunWg.Wait()
}

// receiveLoop is the control thread: read a datagram, decode it, dispatch
// it, and send back whatever reply (if any) the command produces. A
// malformed datagram is logged and dropped per spec.md §5's "malformed
// commands are dropped" rule; it never stops the loop.
func (s *Server) receiveLoop() {
	buf := make([]byte, 65536)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			// Closed by Shutdown/requestQuit: exit quietly.
			return
		}

		msg, err := osc.Decode(buf[:n])
		if err != nil {
			s.logger.Warnf("server: malformed datagram from %s: %v", from, err)
			continue
		}

		cmd, err := osc.ToCommand(msg, from.String())
		if err != nil {
			s.logger.Warnf("server: %s: %v", from, err)
			continue
		}

		reply, err := s.dispatcher.Handle(cmd)
		if err != nil {
			s.logger.Debugf("server: command %q from %s: %v", msg.Command(), from, err)
		}

		replyMsg, ok := osc.FromReply(reply)
		if !ok {
			continue
		}
		data, err := osc.Encode(replyMsg)
		if err != nil {
			s.logger.Errorf("server: encoding reply to %s: %v", from, err)
			continue
		}
		if _, err := s.conn.WriteToUDP(data, from); err != nil {
			s.logger.Warnf("server: replying to %s: %v", from, err)
		}
	}
}

// Shutdown requests a clean stop: Run's receive loop and render thread
// both unwind and Run returns. Safe to call from any goroutine, including
// a signal handler.
func (s *Server) Shutdown() {
	s.requestQuit()
}
