package osc

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/dispatcher"
	"github.com/spaghettifunk/scinthd/engine/tween"
)

// Command suffixes, following AddressPrefix. Perfect-hash lookup (the
// teacher's original used gperf over these exact strings) is overkill for a
// dozen entries; a map does the same job without a codegen step.
const (
	cmdQuit             = "quit"
	cmdStatus           = "status"
	cmdNotify           = "notify"
	cmdDumpOSC          = "dumpOSC"
	cmdError            = "error"
	cmdVersion          = "version"
	cmdScinthDefLoad    = "scinthDefLoad"
	cmdScinthDefReceive = "scinthDefReceive"
	cmdScinthDefFree    = "scinthDefFree"
	cmdScinthNew        = "scinthNew"
	cmdScinthFree       = "scinthFree"
	cmdScinthSet        = "scinthSet"
	cmdScinthRun        = "scinthRun"
)

var curveNames = map[string]tween.Curve{
	"linear":        tween.Linear,
	"sine":          tween.Sine,
	"welch":         tween.Welch,
	"squaredLinear": tween.SquaredLinear,
	"cubedLinear":   tween.CubedLinear,
	"sine2":         tween.Sine2,
}

// ToCommand translates a decoded Message into a dispatcher.Command, per the
// address-suffix table above. Any structural mismatch (wrong argument
// count or type for the recognized command), or an unrecognized suffix, is
// a Protocol-kind error — the caller drops the datagram and logs it,
// mirroring the "unknown commands are logged and ignored" rule without
// ever handing an invalid Command to the dispatcher.
func ToCommand(m Message, replyTo string) (dispatcher.Command, error) {
	suffix := m.Command()
	switch suffix {
	case cmdQuit:
		return dispatcher.Command{Kind: dispatcher.KindQuit, ReplyTo: replyTo}, nil

	case cmdStatus:
		return dispatcher.Command{Kind: dispatcher.KindStatus, ReplyTo: replyTo}, nil

	case cmdVersion:
		return dispatcher.Command{Kind: dispatcher.KindVersion, ReplyTo: replyTo}, nil

	case cmdNotify:
		on, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindNotify, ReplyTo: replyTo, NotifyRegister: on != 0}, nil

	case cmdDumpOSC:
		on, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindDumpOSC, ReplyTo: replyTo, DumpOSCOn: on != 0}, nil

	case cmdError:
		policy, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		if policy < 0 || policy > 2 {
			return dispatcher.Command{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: error policy %d out of range 0..2", policy))
		}
		return dispatcher.Command{Kind: dispatcher.KindErrorPolicy, ReplyTo: replyTo, ErrorPolicy: dispatcher.ErrorPolicy(policy)}, nil

	case cmdScinthDefLoad:
		path, err := argString(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthDefLoad, ReplyTo: replyTo, Path: path}, nil

	case cmdScinthDefReceive:
		yamlBytes, err := argBlob(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthDefReceive, ReplyTo: replyTo, YAML: yamlBytes}, nil

	case cmdScinthDefFree:
		name, err := argString(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthDefFree, ReplyTo: replyTo, DefName: name}, nil

	case cmdScinthNew:
		name, err := argString(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		nodeID, err := argInt(m, 1)
		if err != nil {
			return dispatcher.Command{}, err
		}
		params, err := parseParams(m, 2)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthNew, ReplyTo: replyTo, DefName: name, NodeID: nodeID, Params: params}, nil

	case cmdScinthFree:
		nodeID, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthFree, ReplyTo: replyTo, NodeID: nodeID}, nil

	case cmdScinthSet:
		nodeID, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		params, err := parseParams(m, 1)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthSet, ReplyTo: replyTo, NodeID: nodeID, Params: params}, nil

	case cmdScinthRun:
		nodeID, err := argInt(m, 0)
		if err != nil {
			return dispatcher.Command{}, err
		}
		run, err := argInt(m, 1)
		if err != nil {
			return dispatcher.Command{}, err
		}
		return dispatcher.Command{Kind: dispatcher.KindScinthRun, ReplyTo: replyTo, NodeID: nodeID, Run: run != 0}, nil

	default:
		return dispatcher.Command{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: unrecognized command %q", suffix))
	}
}

// parseParams decodes the key/value tail of a ScinthNew or ScinthSet
// message starting at argument index start. Each entry is either a plain
// (s key, f value) pair, or a tweened (s key, f value, f duration, s curve)
// quadruple; the two shapes are told apart by looking at the tag of the
// argument two slots ahead.
func parseParams(m Message, start int) (map[string]dispatcher.ParamValue, error) {
	params := make(map[string]dispatcher.ParamValue)
	i := start
	for i < len(m.Args) {
		key, err := argString(m, i)
		if err != nil {
			return nil, err
		}
		value, err := argFloat(m, i+1)
		if err != nil {
			return nil, err
		}
		i += 2

		hasTween := i+1 < len(m.Args) && m.Args[i].Kind == ArgFloat32 && m.Args[i+1].Kind == ArgString
		if !hasTween {
			params[key] = dispatcher.ParamValue{Value: value}
			continue
		}

		duration, err := argFloat(m, i)
		if err != nil {
			return nil, err
		}
		curveName, err := argString(m, i+1)
		if err != nil {
			return nil, err
		}
		curve, ok := curveNames[curveName]
		if !ok {
			return nil, core.NewError(core.KindProtocol, fmt.Errorf("osc: unknown tween curve %q", curveName))
		}
		params[key] = dispatcher.ParamValue{Value: value, HasTween: true, Duration: duration, Curve: curve}
		i += 2
	}
	return params, nil
}

func argInt(m Message, i int) (int, error) {
	if i >= len(m.Args) || m.Args[i].Kind != ArgInt32 {
		return 0, core.NewError(core.KindProtocol, fmt.Errorf("osc: %s: expected int32 argument at index %d", m.Address, i))
	}
	return int(m.Args[i].Int), nil
}

func argFloat(m Message, i int) (float32, error) {
	if i >= len(m.Args) || m.Args[i].Kind != ArgFloat32 {
		return 0, core.NewError(core.KindProtocol, fmt.Errorf("osc: %s: expected float32 argument at index %d", m.Address, i))
	}
	return m.Args[i].Float, nil
}

func argString(m Message, i int) (string, error) {
	if i >= len(m.Args) || m.Args[i].Kind != ArgString {
		return "", core.NewError(core.KindProtocol, fmt.Errorf("osc: %s: expected string argument at index %d", m.Address, i))
	}
	return m.Args[i].Str, nil
}

func argBlob(m Message, i int) ([]byte, error) {
	if i >= len(m.Args) || m.Args[i].Kind != ArgBlob {
		return nil, core.NewError(core.KindProtocol, fmt.Errorf("osc: %s: expected blob argument at index %d", m.Address, i))
	}
	return m.Args[i].Blob, nil
}

// FromReply encodes a dispatcher.Reply as the Message to send back to the
// command's ReplyTo address. Replies with Kind ReplyNone produce no
// message at all.
func FromReply(reply *dispatcher.Reply) (Message, bool) {
	if reply == nil {
		return Message{}, false
	}
	switch reply.Kind {
	case dispatcher.ReplyStatus:
		return Message{
			Address: AddressPrefix + "status_reply",
			Args: []Arg{
				{Kind: ArgInt32, Int: int32(reply.ScinthCount)},
				{Kind: ArgFloat32, Float: float32(reply.MeanFPS)},
				{Kind: ArgInt32, Int: int32(reply.LateFrameTotal)},
			},
		}, true

	case dispatcher.ReplyVersion:
		return Message{
			Address: AddressPrefix + "version_reply",
			Args:    []Arg{{Kind: ArgString, Str: reply.Version}},
		}, true

	case dispatcher.ReplyError:
		return Message{
			Address: AddressPrefix + "error_reply",
			Args:    []Arg{{Kind: ArgString, Str: reply.ErrorMessage}},
		}, true

	default:
		return Message{}, false
	}
}

// CurveName returns the wire name FromReply's counterpart ToCommand
// recognizes for curve, the inverse of curveNames, for callers (e.g. a
// client-side test harness) constructing ScinthSet messages.
func CurveName(curve tween.Curve) string {
	for name, c := range curveNames {
		if c == curve {
			return name
		}
	}
	return strings.ToLower(curve.String())
}
