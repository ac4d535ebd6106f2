package core

import "sync"

type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		U32 [4]uint32
		F32 [4]float32

		C [4]string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// A file-backed asset finished (re)importing.
	/* Context usage:
	 * asset path = data.C[0];
	 * storage name = data.C[1];
	 */
	EVENT_CODE_ASSET_LOADED SystemEventCode = 0x01

	// A file-backed asset changed on disk and was re-imported.
	/* Context usage:
	 * asset path = data.C[0];
	 */
	EVENT_CODE_ASSET_RELOADED SystemEventCode = 0x02

	// An asset failed to import or process.
	/* Context usage:
	 * asset name = data.C[0];
	 * error message = data.C[1];
	 */
	EVENT_CODE_ASSET_FAILED SystemEventCode = 0x03

	// All sub-assets of a prefab resolved and its entities were populated.
	/* Context usage:
	 * request id = data.U64[0];
	 * entity count = data.U32[0];
	 * world id = data.C[0];
	 */
	EVENT_CODE_PREFAB_LOADED SystemEventCode = 0x04

	// A prefab could not be loaded; nothing was attached.
	/* Context usage:
	 * request id = data.U64[0];
	 * error message = data.C[0];
	 * world id = data.C[1];
	 */
	EVENT_CODE_PREFAB_FAILED SystemEventCode = 0x05

	// Shuts the application down on the next frame.
	/* Context usage:
	 * reason = data.C[0];
	 */
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x06

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

type eventSystemState struct {
	mu sync.RWMutex
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES]eventCodeEntry
}

var eventState = &eventSystemState{}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

// EventShutdown drops every registered listener.
func EventShutdown() error {
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		eventState.registered[i].events = nil
	}
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listener/callback combos will not be registered again and will cause this to return false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || int(code) >= MAX_MESSAGE_CODES || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	entry := &eventState.registered[code]
	for _, e := range entry.events {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	entry.events = append(entry.events, &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 */
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if code < 0 || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	entry := &eventState.registered[code]
	for i, e := range entry.events {
		if e.listener == listener {
			entry.events = append(entry.events[:i], entry.events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if code < 0 || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	eventState.mu.RLock()
	events := append([]*registeredEvent(nil), eventState.registered[code].events...)
	eventState.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
