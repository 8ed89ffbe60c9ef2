package fsm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

//
//  machine := fsm.MustNewFSM(name, initialState, events, callbacks)
//
//  resp, err := machine.Do(event, args...)
//

const StateGlobalDone = State("__done")

var (
	ErrEventNotAllowed = errors.New("event is not allowed in current state")
	ErrEventInternal   = errors.New("event is internal")
)

type State string

func (s State) String() string {
	return string(s)
}

type Event string

func (e Event) String() string {
	return string(e)
}

func (e Event) IsEmpty() bool {
	return e == ""
}

// Response returns result of the event processing
type Response struct {
	// Machine state after the event
	State State
	// Callback result, type depends on the event
	Data interface{}
}

type EventDesc struct {
	Name Event

	SrcState []State

	DstState State

	// Internal events cannot be emitted with Do
	IsInternal bool
}

// Callback may return another event of the same source state to redirect the transition
type Callback func(event Event, args ...interface{}) (Event, interface{}, error)

type Callbacks map[Event]Callback

type trKey struct {
	source State
	event  Event
}

type trEvent struct {
	event      Event
	dstState   State
	isInternal bool
}

type FSM struct {
	name         string
	initialState State

	transitions map[trKey]*trEvent
	callbacks   Callbacks

	// States which are never a source of a transition
	finStates map[State]bool

	mu           sync.RWMutex
	currentState State
}

func MustNewFSM(machineName string, initialState State, events []EventDesc, callbacks Callbacks) *FSM {
	machineName = strings.TrimSpace(machineName)
	if machineName == "" {
		panic("machine name cannot be empty")
	}

	if strings.TrimSpace(initialState.String()) == "" {
		panic("initial state cannot be empty")
	}

	if len(events) == 0 {
		panic("cannot init fsm with empty events")
	}

	f := &FSM{
		name:         machineName,
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[trKey]*trEvent),
		callbacks:    make(Callbacks),
		finStates:    make(map[State]bool),
	}

	allEvents := make(map[Event]bool)
	allSources := make(map[State]bool)
	allStates := map[State]bool{initialState: true}

	for _, event := range events {
		if event.Name == "" {
			panic("cannot init empty event")
		}

		if event.DstState == "" {
			panic(fmt.Sprintf("event \"%s\" has empty destination", event.Name))
		}

		if allEvents[event.Name] {
			panic(fmt.Sprintf("duplicate event \"%s\"", event.Name))
		}
		allEvents[event.Name] = true
		allStates[event.DstState] = true

		if len(event.SrcState) == 0 {
			panic(fmt.Sprintf("event \"%s\" must have at least one source state", event.Name))
		}

		for _, source := range event.SrcState {
			if source == StateGlobalDone {
				panic("StateGlobalDone cannot be a source state")
			}

			key := trKey{source, event.Name}
			if _, ok := f.transitions[key]; ok {
				panic(fmt.Sprintf("duplicate transition \"%s\" from \"%s\"", event.Name, source))
			}

			f.transitions[key] = &trEvent{
				event:      event.Name,
				dstState:   event.DstState,
				isInternal: event.IsInternal,
			}
			allSources[source] = true
			allStates[source] = true
		}
	}

	if len(allStates) < 2 {
		panic("machine must contain at least two states")
	}

	for event, callback := range callbacks {
		if !allEvents[event] {
			panic(fmt.Sprintf("callback for unknown event \"%s\"", event))
		}
		f.callbacks[event] = callback
	}

	for state := range allStates {
		if !allSources[state] {
			f.finStates[state] = true
		}
	}

	if len(f.finStates) == 0 {
		panic("cannot initialize machine without final states")
	}

	return f
}

// Do emits an external event
func (f *FSM) Do(event Event, args ...interface{}) (*Response, error) {
	tr, err := f.lookup(event)
	if err != nil {
		return nil, err
	}
	if tr.isInternal {
		return nil, fmt.Errorf("%w: %s", ErrEventInternal, event)
	}
	return f.do(tr, args...)
}

// DoInternal emits any event, including internal ones
func (f *FSM) DoInternal(event Event, args ...interface{}) (*Response, error) {
	tr, err := f.lookup(event)
	if err != nil {
		return nil, err
	}
	return f.do(tr, args...)
}

func (f *FSM) lookup(event Event) (*trEvent, error) {
	state := f.State()
	tr, ok := f.transitions[trKey{state, event}]
	if !ok {
		return nil, fmt.Errorf("%w: cannot execute event \"%s\" for state \"%s\"", ErrEventNotAllowed, event, state)
	}
	return tr, nil
}

func (f *FSM) do(tr *trEvent, args ...interface{}) (*Response, error) {
	resp := &Response{State: f.State()}

	outEvent := tr.event
	if callback, ok := f.callbacks[tr.event]; ok {
		var (
			event Event
			err   error
		)
		event, resp.Data, err = callback(tr.event, args...)
		if err != nil {
			return resp, err
		}
		if !event.IsEmpty() {
			outEvent = event
		}
	}

	if err := f.SetState(outEvent); err != nil {
		return resp, err
	}

	resp.State = f.State()
	return resp, nil
}

// State returns the current state of the FSM.
func (f *FSM) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.currentState
}

// SetState moves the machine with the given event without running callbacks.
func (f *FSM) SetState(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tr, ok := f.transitions[trKey{f.currentState, event}]
	if !ok {
		return fmt.Errorf("%w: cannot change state \"%s\" with \"%s\"", ErrEventNotAllowed, f.currentState, event)
	}
	f.currentState = tr.dstState
	return nil
}

func (f *FSM) IsFinState(state State) bool {
	return f.finStates[state]
}
