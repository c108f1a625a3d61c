package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig drives the member discount policy applied at checkout.
// Rates are fractions in [0,1); the threshold is in the smallest currency unit.
type PricingConfig struct {
	DiscountThreshold int64            `mapstructure:"discountThreshold"`
	MemberDiscounts   []MemberDiscount `mapstructure:"memberDiscounts"`
}

type MemberDiscount struct {
	MembershipCode     int     `mapstructure:"membershipCode"`
	BelowThreshold     float64 `mapstructure:"belowThreshold"`
	AtOrAboveThreshold float64 `mapstructure:"atOrAboveThreshold"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		DiscountThreshold: 3000,
		MemberDiscounts: []MemberDiscount{
			{MembershipCode: 1, BelowThreshold: 0.05, AtOrAboveThreshold: 0.10},
			{MembershipCode: 2, BelowThreshold: 0.10, AtOrAboveThreshold: 0.20},
		},
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/regi/config") // volume-mounted config
	v.AddConfigPath("/etc/regi")            // system config
	v.AddConfigPath(".")                    // current directory (dev mode)

	v.SetEnvPrefix("REGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no config file: run on defaults
		found = false
	}

	cfg := DefaultPricingConfig()
	if found {
		if err := v.UnmarshalKey("pricing", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	if found {
		// 🔥 hot reload
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PricingConfig
			if err := v.UnmarshalKey("pricing", &updated); err != nil {
				log.Printf("[pricing-config] reload failed: %v", err)
				return
			}
			if err := validatePricingConfig(updated); err != nil {
				log.Printf("[pricing-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[pricing-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

// StaticPricingConfigHolder pins the holder to cfg, bypassing file
// config entirely. Intended for tests.
func StaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.DiscountThreshold <= 0 {
		return errors.New("pricing.discountThreshold must be positive")
	}
	seen := make(map[int]struct{}, len(cfg.MemberDiscounts))
	for _, d := range cfg.MemberDiscounts {
		if _, dup := seen[d.MembershipCode]; dup {
			return fmt.Errorf("pricing.memberDiscounts: duplicate membership code %d", d.MembershipCode)
		}
		seen[d.MembershipCode] = struct{}{}
		if d.BelowThreshold < 0 || d.BelowThreshold >= 1 {
			return fmt.Errorf("pricing.memberDiscounts: rate %v for code %d out of [0,1)", d.BelowThreshold, d.MembershipCode)
		}
		if d.AtOrAboveThreshold < 0 || d.AtOrAboveThreshold >= 1 {
			return fmt.Errorf("pricing.memberDiscounts: rate %v for code %d out of [0,1)", d.AtOrAboveThreshold, d.MembershipCode)
		}
	}
	return nil
}
