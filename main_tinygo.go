//go:build tinygo

package main

import (
	"context"

	"smpcore/app"
	"smpcore/config"
	"smpcore/hal"
	"smpcore/internal/buildinfo"
)

func main() {
	cfg := config.Default()
	h := hal.New(cfg.Host())
	h.Logger().WriteLineString(buildinfo.Banner(hal.Board, h.Cores()))

	portCfg := cfg.Port()
	portCfg.Cores = h.Cores()
	r, err := app.Run(context.Background(), h, portCfg, cfg.App())
	r.Print(h.Logger())
	if err != nil {
		h.Logger().WriteLineString("error: " + err.Error())
	}
	select {}
}
