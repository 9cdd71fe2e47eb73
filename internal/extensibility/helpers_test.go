package extensibility

import "github.com/comalice/vertexfsm"

type tick string

func (t tick) EventType() vertexfsm.EventType { return vertexfsm.EventType(t) }
