package osc

import (
	"testing"

	"github.com/spaghettifunk/scinthd/engine/dispatcher"
	"github.com/spaghettifunk/scinthd/engine/tween"
)

func TestToCommandStatus(t *testing.T) {
	cmd, err := ToCommand(Message{Address: "/scin_status"}, "127.0.0.1:9999")
	if err != nil {
		t.Fatalf("ToCommand: %v", err)
	}
	if cmd.Kind != dispatcher.KindStatus || cmd.ReplyTo != "127.0.0.1:9999" {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestToCommandScinthNewWithImmediateParams(t *testing.T) {
	m := Message{
		Address: "/scin_scinthNew",
		Args: []Arg{
			{Kind: ArgString, Str: "SimpleColor"},
			{Kind: ArgInt32, Int: 3},
			{Kind: ArgString, Str: "brightness"},
			{Kind: ArgFloat32, Float: 0.75},
		},
	}
	cmd, err := ToCommand(m, "")
	if err != nil {
		t.Fatalf("ToCommand: %v", err)
	}
	if cmd.Kind != dispatcher.KindScinthNew || cmd.DefName != "SimpleColor" || cmd.NodeID != 3 {
		t.Fatalf("cmd = %+v", cmd)
	}
	pv, ok := cmd.Params["brightness"]
	if !ok || pv.HasTween || pv.Value != 0.75 {
		t.Fatalf("params = %+v", cmd.Params)
	}
}

func TestToCommandScinthSetWithTween(t *testing.T) {
	m := Message{
		Address: "/scin_scinthSet",
		Args: []Arg{
			{Kind: ArgInt32, Int: 5},
			{Kind: ArgString, Str: "brightness"},
			{Kind: ArgFloat32, Float: 1.0},
			{Kind: ArgFloat32, Float: 2.5},
			{Kind: ArgString, Str: "sine"},
		},
	}
	cmd, err := ToCommand(m, "")
	if err != nil {
		t.Fatalf("ToCommand: %v", err)
	}
	pv, ok := cmd.Params["brightness"]
	if !ok || !pv.HasTween || pv.Value != 1.0 || pv.Duration != 2.5 || pv.Curve != tween.Sine {
		t.Fatalf("params = %+v", cmd.Params)
	}
}

func TestToCommandRejectsUnrecognizedSuffix(t *testing.T) {
	if _, err := ToCommand(Message{Address: "/scin_bogus"}, ""); err == nil {
		t.Fatal("expected error for unrecognized command")
	}
}

func TestToCommandRejectsWrongArgType(t *testing.T) {
	m := Message{Address: "/scin_scinthFree", Args: []Arg{{Kind: ArgString, Str: "nope"}}}
	if _, err := ToCommand(m, ""); err == nil {
		t.Fatal("expected error for string argument where int32 expected")
	}
}

func TestFromReplyStatus(t *testing.T) {
	reply := &dispatcher.Reply{Kind: dispatcher.ReplyStatus, ScinthCount: 2, MeanFPS: 59.9, LateFrameTotal: 1}
	m, ok := FromReply(reply)
	if !ok {
		t.Fatal("expected a message for a status reply")
	}
	if m.Address != "/scin_status_reply" || len(m.Args) != 3 {
		t.Fatalf("m = %+v", m)
	}
	if m.Args[0].Int != 2 {
		t.Fatalf("ScinthCount arg = %d, want 2", m.Args[0].Int)
	}
}

func TestFromReplyNoneProducesNoMessage(t *testing.T) {
	if _, ok := FromReply(nil); ok {
		t.Fatal("expected no message for a nil reply")
	}
}

func TestCurveNameRoundTripsThroughToCommand(t *testing.T) {
	name := CurveName(tween.Welch)
	m := Message{
		Address: "/scin_scinthSet",
		Args: []Arg{
			{Kind: ArgInt32, Int: 1},
			{Kind: ArgString, Str: "x"},
			{Kind: ArgFloat32, Float: 0},
			{Kind: ArgFloat32, Float: 1},
			{Kind: ArgString, Str: name},
		},
	}
	cmd, err := ToCommand(m, "")
	if err != nil {
		t.Fatalf("ToCommand: %v", err)
	}
	if cmd.Params["x"].Curve != tween.Welch {
		t.Fatalf("curve = %v, want Welch", cmd.Params["x"].Curve)
	}
}
