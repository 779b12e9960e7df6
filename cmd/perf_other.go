//go:build !linux

package cmd

import (
	log "github.com/sirupsen/logrus"
)

func countInstructions(run func() error) error {
	log.Warn("instruction counting needs linux perf events, running without it")
	return run()
}
