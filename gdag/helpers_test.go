package gdag

import "reflect"

var (
	intType    = reflect.TypeOf(0)
	stringType = reflect.TypeOf("")
)

type noopBuilder struct{ kind StageKind }

func (n *noopBuilder) BuilderKind() StageKind { return n.kind }

func testSource(id StageID, out reflect.Type) *Stage {
	return &Stage{
		ID:       id,
		Kind:     KindSource,
		OutTypes: []reflect.Type{out},
		Builder:  &noopBuilder{kind: KindSource},
	}
}

func testFlow(id StageID, in, out reflect.Type) *Stage {
	return &Stage{
		ID:       id,
		Kind:     KindFlow,
		InTypes:  []reflect.Type{in},
		OutTypes: []reflect.Type{out},
		Builder:  &noopBuilder{kind: KindFlow},
	}
}

func testSink(id StageID, in reflect.Type) *Stage {
	return &Stage{
		ID:      id,
		Kind:    KindSink,
		InTypes: []reflect.Type{in},
		Builder: &noopBuilder{kind: KindSink},
	}
}

func ref(id StageID, port int) PortRef {
	return PortRef{Stage: id, Port: port}
}
