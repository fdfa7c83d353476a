//go:build !(tinygo && bootdebug)

package app

import "smpcore/hal"

func bootDiagStart(hal.HAL)  {}
func bootDiagSetStep(string) {}
