//go:build linux

package cmd

import (
	perf "github.com/hodgesds/perf-utils"
	log "github.com/sirupsen/logrus"
)

func countInstructions(run func() error) (err error) {
	var (
		pv *perf.ProfileValue
	)
	if pv, err = perf.CPUInstructions(run); err != nil {
		return
	}
	log.WithFields(log.Fields{
		"instructions": pv.Value,
		"time_enabled": pv.TimeEnabled,
		"time_running": pv.TimeRunning,
	}).Info("hardware counters")
	return
}
