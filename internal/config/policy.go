package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy controls how payments are matched to bills and how defaults are
// classified. The eligibility window for a bill is
// (due_date - WindowDaysBefore, due_date + WindowDaysAfter], day granularity.
type Policy struct {
	WindowDaysBefore int     `mapstructure:"windowDaysBefore"`
	WindowDaysAfter  int     `mapstructure:"windowDaysAfter"`
	Tolerance        float64 `mapstructure:"tolerance"`
	ResolverWorkers  int     `mapstructure:"resolverWorkers"`
}

func DefaultPolicy() Policy {
	return Policy{
		WindowDaysBefore: 3,
		WindowDaysAfter:  60,
		Tolerance:        1.0,
		ResolverWorkers:  4,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("arrears")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/arrears")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ARREARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.windowDaysBefore", defaults.WindowDaysBefore)
	v.SetDefault("policy.windowDaysAfter", defaults.WindowDaysAfter)
	v.SetDefault("policy.tolerance", defaults.Tolerance)
	v.SetDefault("policy.resolverWorkers", defaults.ResolverWorkers)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var p Policy
	if err := v.UnmarshalKey("policy", &p); err != nil {
		return nil, err
	}
	if err := validatePolicy(p); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(p)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.WindowDaysBefore < 0 {
		return errors.New("policy.windowDaysBefore cannot be negative")
	}
	if p.WindowDaysAfter <= 0 {
		return errors.New("policy.windowDaysAfter must be positive")
	}
	if p.Tolerance < 0 {
		return errors.New("policy.tolerance cannot be negative")
	}
	if p.ResolverWorkers < 1 {
		return errors.New("policy.resolverWorkers must be at least 1")
	}
	return nil
}
