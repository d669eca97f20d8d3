package appevents

// AppEvent is a marker interface for events sent from the TUI to the app's
// logic controller. The unexported method means only types embedding Event
// can satisfy it, which keeps the event set closed at compile time.
type AppEvent interface {
	isAppEvent()
}

// Event is embedded by event types to satisfy AppEvent.
type Event struct{}

func (Event) isAppEvent() {}

// AppUIMessage is the marker interface for messages sent from the app's
// logic controller back to the TUI.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage is embedded by message types to satisfy AppUIMessage.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// AppErrorMsg carries a controller-side error to the TUI.
type AppErrorMsg struct {
	UIMessage
	Err error
}
