package events

import "tradebot-config/internal/logging"

// LogHook forwards published logger exceptions to the bus as error events
func LogHook(bus *EventBus) logging.ErrorHook {
	return func(entry logging.LogEntry) {
		bus.PublishError(entry.Component, entry.Message, entry.Error)
	}
}
