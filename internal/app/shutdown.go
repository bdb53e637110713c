package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
)

// WaitForShutdown blocks until SIGINT or SIGTERM arrives.
func WaitForShutdown(logger *observability.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
}
