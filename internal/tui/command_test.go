package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args string
	}{
		{"new", "new", ""},
		{"  Mode   auto ", "mode", "auto"},
		{"speak hello there", "speak", "hello there"},
		{"", "", ""},
	}
	for _, tt := range tests {
		cmd := ParseCommand(tt.in)
		if cmd.Name != tt.name || cmd.Args != tt.args {
			t.Errorf("ParseCommand(%q) = %+v, want {%s %s}", tt.in, cmd, tt.name, tt.args)
		}
	}
}

func TestResolveAliases(t *testing.T) {
	cmd, err := ParseCommand("q").Resolve()
	if err != nil || cmd.Name != "quit" {
		t.Errorf("q resolved to %+v, %v", cmd, err)
	}
	cmd, err = ParseCommand("hist pasta").Resolve()
	if err != nil || cmd.Name != "history" || cmd.Args != "pasta" {
		t.Errorf("hist resolved to %+v, %v", cmd, err)
	}
	if _, err := ParseCommand("dance").Resolve(); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestParseSwitch(t *testing.T) {
	for _, in := range []string{"on", "ON", "true", "1"} {
		if v, err := ParseSwitch(in); err != nil || !v {
			t.Errorf("ParseSwitch(%q) = %v, %v", in, v, err)
		}
	}
	for _, in := range []string{"off", "no", "0"} {
		if v, err := ParseSwitch(in); err != nil || v {
			t.Errorf("ParseSwitch(%q) = %v, %v", in, v, err)
		}
	}
	if _, err := ParseSwitch("maybe"); err == nil {
		t.Error("expected error")
	}
}
