package logflags

import "testing"

func TestSetup(t *testing.T) {
	if err := Setup(true, "disasm,emu"); err != nil {
		t.Fatal(err)
	}
	if !Disasm() {
		t.Error("expected disasm logging to be enabled")
	}
	if !Emu() {
		t.Error("expected emu logging to be enabled")
	}
	disasm, emu = false, false
}

func TestSetupDefault(t *testing.T) {
	if err := Setup(true, ""); err != nil {
		t.Fatal(err)
	}
	if !Disasm() {
		t.Error("expected disasm logging to be enabled by default")
	}
	disasm = false
}

func TestSetupErrors(t *testing.T) {
	if err := Setup(false, "disasm"); err == nil {
		t.Error("expected error for --log-output without --log")
	}
	if Disasm() {
		t.Error("disasm logging should stay disabled")
	}
}
