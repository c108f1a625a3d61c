package config

import "go.uber.org/fx"

// Module wires process configuration and the hot-reloadable pricing policy.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewPricingConfigHolder,
	),
)
