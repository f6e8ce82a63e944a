package model

type EventKind string

const (
	EventScheduleRender      EventKind = "schedule-render"
	EventScheduleStateUpdate EventKind = "schedule-state-update"
	EventScheduleForceUpdate EventKind = "schedule-force-update"
	EventSuspenseSuspend     EventKind = "suspense-suspend"
	EventSuspenseResolved    EventKind = "suspense-resolved"
	EventSuspenseRejected    EventKind = "suspense-rejected"
)

func (k EventKind) IsSchedule() bool {
	switch k {
	case EventScheduleRender, EventScheduleStateUpdate, EventScheduleForceUpdate:
		return true
	}
	return false
}

func (k EventKind) IsSuspense() bool {
	switch k {
	case EventSuspenseSuspend, EventSuspenseResolved, EventSuspenseRejected:
		return true
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////

// ReactEvent is a closed union: only the variants declared in this package
// implement it. Consumers that must handle every variant implement EventVisitor,
// so a new variant is a compile error for each of them.
type ReactEvent interface {
	Kind() EventKind
	Time() Milliseconds
	Base() EventBase
	Accept(v EventVisitor)

	sealed()
}

type EventVisitor interface {
	VisitScheduleRender(e *ScheduleRenderEvent)
	VisitScheduleStateUpdate(e *ScheduleStateUpdateEvent)
	VisitScheduleForceUpdate(e *ScheduleForceUpdateEvent)
	VisitSuspenseSuspend(e *SuspenseSuspendEvent)
	VisitSuspenseResolved(e *SuspenseResolvedEvent)
	VisitSuspenseRejected(e *SuspenseRejectedEvent)
}

////////////////////////////////////////////////////////////////////////////////

type EventBase struct {
	Timestamp      Milliseconds
	ComponentName  string
	ComponentStack string
}

func (b EventBase) Time() Milliseconds {
	return b.Timestamp
}

func (b EventBase) Base() EventBase {
	return b
}

func (EventBase) sealed() {}

type ScheduleEvent struct {
	EventBase
	Lanes Lanes
}

type SuspenseEvent struct {
	EventBase
	ID string
}

////////////////////////////////////////////////////////////////////////////////

type ScheduleRenderEvent struct {
	ScheduleEvent
}

type ScheduleStateUpdateEvent struct {
	ScheduleEvent
	// Scheduled while a render was already in progress.
	IsCascading bool
}

type ScheduleForceUpdateEvent struct {
	ScheduleEvent
	IsCascading bool
}

type SuspenseSuspendEvent struct {
	SuspenseEvent
}

type SuspenseResolvedEvent struct {
	SuspenseEvent
}

type SuspenseRejectedEvent struct {
	SuspenseEvent
}

func (*ScheduleRenderEvent) Kind() EventKind      { return EventScheduleRender }
func (*ScheduleStateUpdateEvent) Kind() EventKind { return EventScheduleStateUpdate }
func (*ScheduleForceUpdateEvent) Kind() EventKind { return EventScheduleForceUpdate }
func (*SuspenseSuspendEvent) Kind() EventKind     { return EventSuspenseSuspend }
func (*SuspenseResolvedEvent) Kind() EventKind    { return EventSuspenseResolved }
func (*SuspenseRejectedEvent) Kind() EventKind    { return EventSuspenseRejected }

func (e *ScheduleRenderEvent) Accept(v EventVisitor)      { v.VisitScheduleRender(e) }
func (e *ScheduleStateUpdateEvent) Accept(v EventVisitor) { v.VisitScheduleStateUpdate(e) }
func (e *ScheduleForceUpdateEvent) Accept(v EventVisitor) { v.VisitScheduleForceUpdate(e) }
func (e *SuspenseSuspendEvent) Accept(v EventVisitor)     { v.VisitSuspenseSuspend(e) }
func (e *SuspenseResolvedEvent) Accept(v EventVisitor)    { v.VisitSuspenseResolved(e) }
func (e *SuspenseRejectedEvent) Accept(v EventVisitor)    { v.VisitSuspenseRejected(e) }

var (
	_ ReactEvent = (*ScheduleRenderEvent)(nil)
	_ ReactEvent = (*ScheduleStateUpdateEvent)(nil)
	_ ReactEvent = (*ScheduleForceUpdateEvent)(nil)
	_ ReactEvent = (*SuspenseSuspendEvent)(nil)
	_ ReactEvent = (*SuspenseResolvedEvent)(nil)
	_ ReactEvent = (*SuspenseRejectedEvent)(nil)
)

////////////////////////////////////////////////////////////////////////////////

// ScheduleLanes returns lanes of a schedule event and false for other variants.
func ScheduleLanes(e ReactEvent) (Lanes, bool) {
	switch e := e.(type) {
	case *ScheduleRenderEvent:
		return e.Lanes, true
	case *ScheduleStateUpdateEvent:
		return e.Lanes, true
	case *ScheduleForceUpdateEvent:
		return e.Lanes, true
	}
	return nil, false
}

// SuspenseID returns the boundary id of a suspense event and false for other variants.
func SuspenseID(e ReactEvent) (string, bool) {
	switch e := e.(type) {
	case *SuspenseSuspendEvent:
		return e.ID, true
	case *SuspenseResolvedEvent:
		return e.ID, true
	case *SuspenseRejectedEvent:
		return e.ID, true
	}
	return "", false
}

// Cascading reports the IsCascading flag of state and force updates.
func Cascading(e ReactEvent) bool {
	switch e := e.(type) {
	case *ScheduleStateUpdateEvent:
		return e.IsCascading
	case *ScheduleForceUpdateEvent:
		return e.IsCascading
	}
	return false
}

// CloneEvent returns a deep copy, so staging buffers never share lanes with frozen data.
func CloneEvent(e ReactEvent) ReactEvent {
	c := &cloner{}
	e.Accept(c)
	return c.res
}

type cloner struct {
	res ReactEvent
}

func (c *cloner) VisitScheduleRender(e *ScheduleRenderEvent) {
	cp := *e
	cp.Lanes = e.Lanes.Clone()
	c.res = &cp
}

func (c *cloner) VisitScheduleStateUpdate(e *ScheduleStateUpdateEvent) {
	cp := *e
	cp.Lanes = e.Lanes.Clone()
	c.res = &cp
}

func (c *cloner) VisitScheduleForceUpdate(e *ScheduleForceUpdateEvent) {
	cp := *e
	cp.Lanes = e.Lanes.Clone()
	c.res = &cp
}

func (c *cloner) VisitSuspenseSuspend(e *SuspenseSuspendEvent) {
	cp := *e
	c.res = &cp
}

func (c *cloner) VisitSuspenseResolved(e *SuspenseResolvedEvent) {
	cp := *e
	c.res = &cp
}

func (c *cloner) VisitSuspenseRejected(e *SuspenseRejectedEvent) {
	cp := *e
	c.res = &cp
}

////////////////////////////////////////////////////////////////////////////////

func NewScheduleRender(ts Milliseconds, lanes Lanes) *ScheduleRenderEvent {
	return &ScheduleRenderEvent{ScheduleEvent{EventBase{Timestamp: ts}, lanes}}
}

func NewScheduleStateUpdate(ts Milliseconds, lanes Lanes, cascading bool) *ScheduleStateUpdateEvent {
	return &ScheduleStateUpdateEvent{ScheduleEvent{EventBase{Timestamp: ts}, lanes}, cascading}
}

func NewScheduleForceUpdate(ts Milliseconds, lanes Lanes, cascading bool) *ScheduleForceUpdateEvent {
	return &ScheduleForceUpdateEvent{ScheduleEvent{EventBase{Timestamp: ts}, lanes}, cascading}
}

func NewSuspenseSuspend(ts Milliseconds, id string) *SuspenseSuspendEvent {
	return &SuspenseSuspendEvent{SuspenseEvent{EventBase{Timestamp: ts}, id}}
}

func NewSuspenseResolved(ts Milliseconds, id string) *SuspenseResolvedEvent {
	return &SuspenseResolvedEvent{SuspenseEvent{EventBase{Timestamp: ts}, id}}
}

func NewSuspenseRejected(ts Milliseconds, id string) *SuspenseRejectedEvent {
	return &SuspenseRejectedEvent{SuspenseEvent{EventBase{Timestamp: ts}, id}}
}
