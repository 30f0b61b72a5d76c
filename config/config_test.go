package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWhenUnset(t *testing.T) {
	Reset()
	os.Unsetenv("SPACEHUB_CONFIG")
	tn := Load()
	if tn.BSMaxRank != 7 {
		t.Fatalf("BSMaxRank = %v, want default 7", tn.BSMaxRank)
	}
	if tn.IAS15MaxIter != 30 {
		t.Fatalf("IAS15MaxIter = %v, want default 30", tn.IAS15MaxIter)
	}
}

func TestLoadFallsBackWhenFileMissing(t *testing.T) {
	Reset()
	os.Setenv("SPACEHUB_CONFIG", t.TempDir())
	defer os.Unsetenv("SPACEHUB_CONFIG")
	tn := Load()
	if tn.BSMaxRank != 7 {
		t.Fatalf("BSMaxRank = %v, want default 7 on missing conf.toml", tn.BSMaxRank)
	}
}

func TestLoadReadsOverridesFromTOML(t *testing.T) {
	Reset()
	dir := t.TempDir()
	toml := "[bulirsch_stoer]\nmax_rank = 9\nrtol = 1e-10\n\n[ias15]\nmax_iter = 12\n"
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write conf.toml: %v", err)
	}
	os.Setenv("SPACEHUB_CONFIG", dir)
	defer os.Unsetenv("SPACEHUB_CONFIG")

	tn := Load()
	if tn.BSMaxRank != 9 {
		t.Fatalf("BSMaxRank = %v, want 9 from conf.toml", tn.BSMaxRank)
	}
	if tn.BSRtol != 1e-10 {
		t.Fatalf("BSRtol = %v, want 1e-10 from conf.toml", tn.BSRtol)
	}
	if tn.IAS15MaxIter != 12 {
		t.Fatalf("IAS15MaxIter = %v, want 12 from conf.toml", tn.IAS15MaxIter)
	}
}

func TestControllersBuiltFromTunables(t *testing.T) {
	Reset()
	os.Unsetenv("SPACEHUB_CONFIG")
	tn := Load()
	bs := tn.BSController()
	if bs.S1 != tn.S1BS || bs.S2 != tn.S2BS {
		t.Fatalf("BSController safety factors don't match tunables: %+v vs %+v", bs, tn)
	}
	ias := tn.IAS15Controller()
	if ias.S1 != tn.S1IAS15 || ias.S2 != tn.S2IAS15 {
		t.Fatalf("IAS15Controller safety factors don't match tunables: %+v vs %+v", ias, tn)
	}
}
