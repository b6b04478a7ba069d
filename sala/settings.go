package main

import (
	_ "embed"

	"github.com/taldoflemis/trattoria/tavola"
)

//go:embed base.yaml
var baseConfig []byte

type CheckoutSettings struct {
	// DistanceSeed keys the simulated distance estimator so the same
	// address always quotes the same fee.
	DistanceSeed uint64 `mapstructure:"distance-seed"`
	CookieName   string `mapstructure:"cookie-name" validate:"required"`
}

type Settings struct {
	App           tavola.AppSettings           `mapstructure:"app" validate:"required"`
	HTTP          tavola.HTTPSettings          `mapstructure:"http" validate:"required"`
	Kitchen       tavola.KitchenSettings       `mapstructure:"kitchen" validate:"required"`
	Checkout      CheckoutSettings             `mapstructure:"checkout" validate:"required"`
	Nats          tavola.NatsSettings          `mapstructure:"nats"`
	OpenTelemetry tavola.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
}

func LoadConfig() (*Settings, error) {
	return tavola.LoadConfig[Settings]("SALA", baseConfig)
}
