package logger

import "testing"

func TestDefaultLoggerIsUsableBeforeInitialize(t *testing.T) {
	if Logger == nil {
		t.Fatal("Logger is nil before Initialize()")
	}
	// Must not panic
	Logger.Debugw("probe", "k", "v")
}

func TestInitializeJSON(t *testing.T) {
	if err := Initialize(true); err != nil {
		t.Fatalf("Initialize(true) error: %v", err)
	}
	if !JSONOutput {
		t.Error("JSONOutput = false after Initialize(true)")
	}
}

func TestSetVerbosityLevels(t *testing.T) {
	for _, v := range []int{0, 1, 2, 3} {
		if err := SetVerbosity(v); err != nil {
			t.Errorf("SetVerbosity(%d) error: %v", v, err)
		}
	}
}
