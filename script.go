package badgekit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScriptStep is a single action in an editor script.
type ScriptStep struct {
	Action     string  `json:"action"`
	Name       string  `json:"name,omitempty"`
	Key        string  `json:"key,omitempty"`
	Command    string  `json:"command,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	FromX      float64 `json:"fromX,omitempty"`
	FromY      float64 `json:"fromY,omitempty"`
	ToX        float64 `json:"toX,omitempty"`
	ToY        float64 `json:"toY,omitempty"`
	Frames     int     `json:"frames,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Dir        string  `json:"dir,omitempty"`
}

type scriptFile struct {
	Steps []ScriptStep `json:"steps"`
}

// Script replays recorded editor interactions frame by frame: pointer
// drags go through the inject queue, everything else runs directly. It
// drives headless tests and the replay command.
type Script struct {
	steps     []ScriptStep
	cursor    int
	waitCount int
	done      bool

	// Artifacts collects every export the script produced.
	Artifacts []*Artifact
	// Written lists the files exports were written to.
	Written []string
}

// LoadScript parses a JSON script.
func LoadScript(data []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range f.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("parse script: step %d: %w", i, err)
		}
	}
	return &Script{steps: f.Steps}, nil
}

func (st ScriptStep) validate() error {
	switch st.Action {
	case "select", "click", "drag", "move", "wait", "reset", "intro", "cancel", "export", "save":
		return nil
	case "key":
		_, _, err := ParseKeyChord(st.Key)
		return err
	case "command":
		if _, ok := ParseCommand(st.Command); !ok {
			return fmt.Errorf("unknown command %q", st.Command)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

// Done reports whether every step has been executed.
func (r *Script) Done() bool {
	return r.done
}

// Step advances the script by one frame. Call it before Editor.Update.
func (r *Script) Step(ctx context.Context, e *Editor) error {
	if r.done {
		return nil
	}
	// Wait for queued pointer events before advancing. A running animation
	// also blocks everything but a cancel.
	if e.PendingInput() > 0 {
		return nil
	}
	if e.State() == StateAnimating && (r.cursor >= len(r.steps) || r.steps[r.cursor].Action != "cancel") {
		return nil
	}
	if r.waitCount > 0 {
		r.waitCount--
		return nil
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return nil
	}

	st := r.steps[r.cursor]
	r.cursor++
	if err := r.run(ctx, e, st); err != nil {
		return fmt.Errorf("step %d (%s): %w", r.cursor-1, st.Action, err)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && e.PendingInput() == 0 && e.State() != StateAnimating {
		r.done = true
	}
	return nil
}

func (r *Script) run(ctx context.Context, e *Editor, st ScriptStep) error {
	switch st.Action {
	case "select":
		if !e.Select(st.Name) {
			return fmt.Errorf("cannot select %q", st.Name)
		}
	case "click":
		e.InjectClick(st.X, st.Y)
	case "drag":
		e.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "move":
		// Drags the selected node so its anchor lands on (x, y).
		n := e.Selected()
		if n == nil {
			return fmt.Errorf("nothing selected")
		}
		if !e.BeginDrag() {
			return fmt.Errorf("cannot drag %q", n.Name)
		}
		e.DragTo(st.X, st.Y)
		e.EndDrag()
	case "key":
		key, mods, err := ParseKeyChord(st.Key)
		if err != nil {
			return err
		}
		e.HandleKey(key, mods)
	case "command":
		cmd, _ := ParseCommand(st.Command)
		e.Command(cmd)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "reset":
		return e.Reset()
	case "intro":
		e.PlayIntro()
	case "cancel":
		e.Command(CmdCancel)
	case "save":
		return e.Save(ctx)
	case "export":
		art, err := e.Export(ctx, st.Multiplier)
		if err != nil {
			return err
		}
		r.Artifacts = append(r.Artifacts, art)
		if st.Dir != "" {
			path, err := art.WriteFile(st.Dir)
			if err != nil {
				return err
			}
			r.Written = append(r.Written, path)
		}
	}
	return nil
}

// Run steps the script and the editor with a fixed frame delta until the
// script is done or maxFrames have elapsed.
func (r *Script) Run(ctx context.Context, e *Editor, dt time.Duration, maxFrames int) error {
	for frame := 0; !r.done; frame++ {
		if frame >= maxFrames {
			return fmt.Errorf("script not finished after %d frames", maxFrames)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Step(ctx, e); err != nil {
			return err
		}
		if err := e.Update(dt); err != nil {
			return err
		}
	}
	return nil
}

var keyNames = map[string]Key{
	"z":      KeyZ,
	"y":      KeyY,
	"e":      KeyE,
	"q":      KeyQ,
	"w":      KeyW,
	"1":      Key1,
	"2":      Key2,
	"escape": KeyEscape,
	"esc":    KeyEscape,
}

var modNames = map[string]KeyModifiers{
	"shift": ModShift,
	"ctrl":  ModCtrl,
	"alt":   ModAlt,
	"meta":  ModMeta,
	"cmd":   ModMeta,
}

// ParseKeyChord parses chords like "ctrl+z", "meta+shift+z" or "escape".
func ParseKeyChord(s string) (Key, KeyModifiers, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var mods KeyModifiers
	for _, p := range parts[:len(parts)-1] {
		m, ok := modNames[strings.TrimSpace(p)]
		if !ok {
			return KeyUnknown, 0, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
		mods |= m
	}
	key, ok := keyNames[strings.TrimSpace(parts[len(parts)-1])]
	if !ok {
		return KeyUnknown, 0, fmt.Errorf("unknown key in %q", s)
	}
	return key, mods, nil
}
