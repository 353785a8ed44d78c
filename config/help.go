package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Ride dispatch

Usage:
  dispatch --mode=<ride-service|driver-service|standalone> [--config=config.yaml]

Modes:
  ride-service     ride creation and cancellation, rider websocket notifications
  driver-service   accept/start/complete and the captain long-poll
  standalone       both services in one process

Every config.yaml key can be overridden by its upper snake case environment
variable, e.g. rabbitmq.retry_delay -> RABBITMQ_RETRY_DELAY.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
