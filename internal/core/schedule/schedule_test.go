package schedule

import (
	"testing"
	"time"

	"studyclock/internal/core/model"
)

func testConfig() model.CycleConfig {
	return model.CycleConfig{
		FocusDuration: 50 * time.Minute,
		BreakDuration: 10 * time.Minute,
		LunchDuration: 30 * time.Minute,
		LunchAfter:    4,
	}
}

func TestFirstIsFocus(t *testing.T) {
	session := First(testConfig())
	if session.Kind != model.KindFocus {
		t.Fatalf("want focus, got %s", session.Kind)
	}
	if session.Planned != 50*time.Minute {
		t.Fatalf("want 50m planned, got %s", session.Planned)
	}
	if session.Status != model.StatusRunning {
		t.Fatalf("want running, got %s", session.Status)
	}
}

func TestCycleSequenceWithLunchThresholdFour(t *testing.T) {
	config := testConfig()
	want := []model.SessionKind{
		model.KindBreak, model.KindFocus,
		model.KindBreak, model.KindFocus,
		model.KindBreak, model.KindFocus,
		model.KindLunch, model.KindFocus,
		model.KindBreak, model.KindFocus,
	}

	kind := model.KindFocus
	position := 0
	for i, wantKind := range want {
		var gotKind model.SessionKind
		gotKind, _, position = Next(kind, position, config)
		if gotKind != wantKind {
			t.Fatalf("step %d: want %s, got %s", i, wantKind, gotKind)
		}
		kind = gotKind
	}
}

func TestNextAfterFocusIncrementsPosition(t *testing.T) {
	kind, planned, position := Next(model.KindFocus, 0, testConfig())
	if kind != model.KindBreak {
		t.Fatalf("want break, got %s", kind)
	}
	if planned != 10*time.Minute {
		t.Fatalf("want 10m, got %s", planned)
	}
	if position != 1 {
		t.Fatalf("want position 1, got %d", position)
	}
}

func TestNextAtThresholdIsLunchAndResets(t *testing.T) {
	kind, planned, position := Next(model.KindFocus, 3, testConfig())
	if kind != model.KindLunch {
		t.Fatalf("want lunch, got %s", kind)
	}
	if planned != 30*time.Minute {
		t.Fatalf("want 30m, got %s", planned)
	}
	if position != 0 {
		t.Fatalf("want position reset to 0, got %d", position)
	}
}

func TestNextAfterRestIsFocusKeepingPosition(t *testing.T) {
	for _, rest := range []model.SessionKind{model.KindBreak, model.KindLunch} {
		kind, _, position := Next(rest, 2, testConfig())
		if kind != model.KindFocus {
			t.Fatalf("after %s: want focus, got %s", rest, kind)
		}
		if position != 2 {
			t.Fatalf("after %s: want position 2, got %d", rest, position)
		}
	}
}

func TestThresholdChangeMidRunPreservesPosition(t *testing.T) {
	config := testConfig()

	// Three focus units committed against threshold 4.
	position := 3

	// Lowering the threshold below the committed count makes the very
	// next rest a lunch; the position is compared, never reset.
	config.LunchAfter = 2
	kind, _, position := Next(model.KindFocus, position, config)
	if kind != model.KindLunch {
		t.Fatalf("want lunch, got %s", kind)
	}
	if position != 0 {
		t.Fatalf("want position 0, got %d", position)
	}

	// Raising the threshold keeps counting from the committed value.
	config.LunchAfter = 10
	kind, _, position = Next(model.KindFocus, 3, config)
	if kind != model.KindBreak {
		t.Fatalf("want break, got %s", kind)
	}
	if position != 4 {
		t.Fatalf("want position 4, got %d", position)
	}
}
