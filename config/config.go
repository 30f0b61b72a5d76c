// Package config loads the tunable safety factors, tolerances and
// iteration limits that parameterize the integrators, controller and
// drivers from an optional TOML file via github.com/spf13/viper.
//
// Unlike smdConfig()'s "environment variable missing is fatal" shape,
// SpaceHub's config is optional: if SPACEHUB_CONFIG is unset or the file
// can't be read, the built-in defaults are used silently, and Load never
// panics.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"

	"github.com/spacehub-go/spacehub/control"
)

func envConfigDir() string {
	return os.Getenv("SPACEHUB_CONFIG")
}

// Tunables holds every knob the integrators, controller and drivers
// accept, loaded once and shared for the process lifetime.
type Tunables struct {
	BSMaxRank   int
	BSRtol      float64
	BSAtol      float64
	BSMaxTry    int
	BSKDK       bool

	IAS15Rtol    float64
	IAS15Atol    float64
	IAS15PCRtol  float64
	IAS15MaxIter int

	S1BS, S2BS, S3BS, S4BS         float64
	S1IAS15, S2IAS15, S3IAS15, S4IAS15 float64
	Kp, Ki, Kd float64
}

func defaults() Tunables {
	bs := control.NewBSController()
	ias := control.NewIAS15Controller()
	return Tunables{
		BSMaxRank: 7,
		BSRtol:    control.BSDefaultRtol,
		BSAtol:    0,
		BSMaxTry:  100,
		BSKDK:     false,

		IAS15Rtol:    control.IAS15DefaultRtol,
		IAS15Atol:    0,
		IAS15PCRtol:  control.IAS15PCRtol,
		IAS15MaxIter: 30,

		S1BS: bs.S1, S2BS: bs.S2, S3BS: bs.S3, S4BS: bs.S4,
		S1IAS15: ias.S1, S2IAS15: ias.S2, S3IAS15: ias.S3, S4IAS15: ias.S4,
		Kp: ias.Kp, Ki: ias.Ki, Kd: ias.Kd,
	}
}

var (
	mu       sync.Mutex
	loaded   bool
	tunables Tunables
)

// Load returns the process-wide Tunables, reading SPACEHUB_CONFIG once
// and caching the result. If the env var names a directory viper can't
// find a "conf.toml" in, or is unset entirely, Load falls back to
// defaults() without error.
func Load() Tunables {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return tunables
	}
	tunables = defaults()
	loaded = true

	confDir := envConfigDir()
	if confDir == "" {
		return tunables
	}

	v := viper.New()
	v.SetConfigName("conf")
	v.AddConfigPath(confDir)
	if err := v.ReadInConfig(); err != nil {
		return tunables
	}

	applyOverride(v, "bulirsch_stoer.max_rank", &tunables.BSMaxRank)
	applyOverride(v, "bulirsch_stoer.rtol", &tunables.BSRtol)
	applyOverride(v, "bulirsch_stoer.atol", &tunables.BSAtol)
	applyOverride(v, "bulirsch_stoer.max_try", &tunables.BSMaxTry)
	applyOverride(v, "bulirsch_stoer.kdk", &tunables.BSKDK)
	applyOverride(v, "bulirsch_stoer.s1", &tunables.S1BS)
	applyOverride(v, "bulirsch_stoer.s2", &tunables.S2BS)
	applyOverride(v, "bulirsch_stoer.s3", &tunables.S3BS)
	applyOverride(v, "bulirsch_stoer.s4", &tunables.S4BS)

	applyOverride(v, "ias15.rtol", &tunables.IAS15Rtol)
	applyOverride(v, "ias15.atol", &tunables.IAS15Atol)
	applyOverride(v, "ias15.pc_rtol", &tunables.IAS15PCRtol)
	applyOverride(v, "ias15.max_iter", &tunables.IAS15MaxIter)
	applyOverride(v, "ias15.s1", &tunables.S1IAS15)
	applyOverride(v, "ias15.s2", &tunables.S2IAS15)
	applyOverride(v, "ias15.s3", &tunables.S3IAS15)
	applyOverride(v, "ias15.s4", &tunables.S4IAS15)

	applyOverride(v, "pid.kp", &tunables.Kp)
	applyOverride(v, "pid.ki", &tunables.Ki)
	applyOverride(v, "pid.kd", &tunables.Kd)

	return tunables
}

// Reset clears the cached Tunables so the next Load re-reads the
// environment. Intended for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = false
}

func applyOverride(v *viper.Viper, key string, dst interface{}) {
	if !v.IsSet(key) {
		return
	}
	switch d := dst.(type) {
	case *int:
		*d = v.GetInt(key)
	case *float64:
		*d = v.GetFloat64(key)
	case *bool:
		*d = v.GetBool(key)
	default:
		panic(fmt.Sprintf("config: unsupported override type for %q", key))
	}
}

// BSController builds a *control.Controller for the Bulirsch-Stoer driver
// from the loaded tunables.
func (t Tunables) BSController() *control.Controller {
	return &control.Controller{Kp: t.Kp, Ki: t.Ki, Kd: t.Kd, S1: t.S1BS, S2: t.S2BS, S3: t.S3BS, S4: t.S4BS}
}

// IAS15Controller builds a *control.Controller for the IAS15 driver from
// the loaded tunables.
func (t Tunables) IAS15Controller() *control.Controller {
	return &control.Controller{Kp: t.Kp, Ki: t.Ki, Kd: t.Kd, S1: t.S1IAS15, S2: t.S2IAS15, S3: t.S3IAS15, S4: t.S4IAS15}
}
