package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"norse/internal/action"
	"norse/internal/api"
	"norse/internal/config"
	"norse/internal/engine"
	"norse/internal/input"
	"norse/internal/intern"
	"norse/internal/network"
	"norse/internal/protocol"
	"norse/internal/record"
	"norse/internal/tray"
)

// runtimeOptions selects the event sources of a runtime.
type runtimeOptions struct {
	// Source replaces every configured source (used for replay).
	Source input.EventSource

	// Record enables recording to cfg.RecordPath.
	Record bool

	Version string
}

// runtime is an instance, its bindings and one session wired to the
// configured event sources.
type runtime struct {
	logger  *slog.Logger
	inst    *engine.Instance
	session *engine.Session
	applied *config.Applied
	queue   *input.Queue
	tap     *record.Tap
	store   *record.Store
	api     *api.Server
	closers []io.Closer
}

// actionReport is the state of one (action, subpath) slot.
type actionReport protocol.ActionState

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts runtimeOptions) (_ *runtime, err error) {
	rt := &runtime{logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.inst, err = engine.New(engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	bindings := config.DefaultBindingFile()
	if cfg.BindingsFile != "" {
		if bindings, err = config.LoadBindings(cfg.BindingsFile); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load bindings", err)
		}
	}
	if bindings.Profile == "" {
		bindings.Profile = cfg.Profile
	}
	if rt.applied, err = bindings.Apply(rt.inst); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to apply bindings", err)
	}

	sessionID := uuid.New()
	sessionOpts := []engine.SessionOption{engine.WithSessionID(sessionID)}

	source := opts.Source
	if source == nil && (cfg.UDPListen != "" || cfg.WSURL != "") {
		source, err = rt.startNetwork(cfg, sessionID, opts.Version)
		if err != nil {
			return nil, err
		}
	}

	if opts.Record && cfg.RecordPath != "" {
		if rt.store, err = record.Open(cfg.RecordPath); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open recording", err)
		}
		rt.closers = append(rt.closers, rt.store)
		if err = rt.store.CreateSession(ctx, sessionID, bindings.Profile); err != nil {
			return nil, err
		}
		if source == nil {
			// record the platform trap through a queue we own
			source, err = rt.startTrap()
			if err != nil {
				return nil, err
			}
		}
		rt.tap = record.NewTap(source, rt.store, sessionID, logger)
		source = rt.tap
		logger.Info("Recording session", "path", cfg.RecordPath, "session", sessionID.String())
	}

	if source != nil {
		sessionOpts = append(sessionOpts, engine.WithEventSource(source))
	}

	if cfg.APIListen != "" {
		rt.api = api.NewServer(cfg.APIToken, logger)
		rt.closers = append(rt.closers, rt.api)
		if err = rt.api.Start(cfg.APIListen); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to start API server", err)
		}
	}

	sys, err := rt.inst.CreateSystem()
	if err != nil {
		return nil, err
	}
	if rt.session, err = rt.inst.CreateSession(sys, sessionOpts...); err != nil {
		return nil, err
	}
	if err = rt.session.AttachActionSets(rt.applied.Sets...); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) startNetwork(cfg config.Config, sessionID uuid.UUID, version string) (input.EventSource, error) {
	rt.queue = input.NewQueue(cfg.QueueCapacity)

	if cfg.UDPListen != "" {
		recv := network.NewUDPReceiver(cfg.UDPListen, rt.queue, rt.logger)
		if err := recv.Start(); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to start UDP receiver", err)
		}
		rt.closers = append(rt.closers, recv)
	}
	if cfg.WSURL != "" {
		ws := network.NewWSSource(cfg.WSURL, rt.queue, protocol.HelloPayload{Session: sessionID.String(), Version: version}, rt.logger)
		ws.Start()
		rt.closers = append(rt.closers, ws)
	}
	return rt.queue, nil
}

func (rt *runtime) startTrap() (input.EventSource, error) {
	rt.queue = input.NewQueue(0)
	trap := input.NewTrap(rt.queue, rt.logger)
	if err := trap.Start(); err != nil {
		if !errors.Is(err, input.ErrUnsupportedPlatform) {
			return nil, err
		}
		rt.logger.Warn("Raw input capture unavailable", "error", err)
	}
	rt.closers = append(rt.closers, trap)
	return trap, nil
}

// tick runs one synchronization over every attached set.
func (rt *runtime) tick() error {
	return rt.session.SyncActions(rt.applied.Sets...)
}

// publish pushes reports to the API server, if one is running.
func (rt *runtime) publish(reports []actionReport) {
	if rt.api == nil {
		return
	}
	p := protocol.StatesPayload{
		Session: rt.session.ID().String(),
		Frame:   rt.session.Frame(),
		Actions: make([]protocol.ActionState, len(reports)),
	}
	for i, r := range reports {
		p.Actions[i] = protocol.ActionState(r)
	}
	rt.api.Publish(p)
}

// snapshot reads the state of every action slot.
func (rt *runtime) snapshot() []actionReport {
	var out []actionReport
	for _, na := range rt.applied.Actions {
		info, err := rt.inst.ActionInfo(na.Action)
		if err != nil {
			continue
		}
		for _, sp := range append([]intern.Path{intern.Null}, info.Subpaths...) {
			rep, ok := rt.report(na, sp)
			if ok {
				out = append(out, rep)
			}
		}
	}
	return out
}

func (rt *runtime) report(na config.NamedAction, subpath intern.Path) (actionReport, bool) {
	rep := actionReport{Set: na.Set, Action: na.Name, Type: na.Type.String()}
	if !subpath.IsNull() {
		rep.Subpath, _ = rt.inst.PathToString(subpath)
	}

	switch na.Type {
	case action.BooleanInput:
		st, err := rt.session.GetActionStateBoolean(na.Action, subpath)
		if err != nil {
			return rep, false
		}
		rep.Value, rep.Active, rep.Changed = tray.FormatBoolean(st), st.IsActive, st.ChangedSinceLastSync
	case action.FloatInput:
		st, err := rt.session.GetActionStateFloat(na.Action, subpath)
		if err != nil {
			return rep, false
		}
		rep.Value, rep.Active, rep.Changed = tray.FormatFloat(st), st.IsActive, st.ChangedSinceLastSync
	case action.Vec2Input:
		st, err := rt.session.GetActionStateVec2(na.Action, subpath)
		if err != nil {
			return rep, false
		}
		rep.Value, rep.Active, rep.Changed = tray.FormatVec2(st), st.IsActive, st.ChangedSinceLastSync
	default:
		return rep, false
	}
	return rep, true
}

func (r actionReport) label() string {
	name := r.Set + "/" + r.Action
	if r.Subpath != "" {
		name += "[" + r.Subpath + "]"
	}
	return name
}

// Close closes the session, then every source and store.
func (rt *runtime) Close() {
	if rt.session != nil {
		if err := rt.session.Close(); err != nil {
			rt.logger.Warn("Session close failed", "error", err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("Close failed", "error", err)
		}
	}
	rt.closers = nil
}
