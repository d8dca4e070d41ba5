package engine

// sliceSourceLogic emits a fixed sequence of elements, one per granted
// demand, then completes.
type sliceSourceLogic struct {
	BaseLogic
	items []any
	idx   int
}

// NewSliceSourceLogic creates a source stage emitting the given elements
// in order.
func NewSliceSourceLogic(items []any) Logic {
	return &sliceSourceLogic{items: items}
}

func (s *sliceSourceLogic) OnStart(env *Env) {
	if len(s.items) == 0 {
		env.CompleteAll()
	}
}

func (s *sliceSourceLogic) OnPull(env *Env, out int) {
	for env.HasDemand(out) && s.idx < len(s.items) {
		env.Push(out, s.items[s.idx])
		s.idx++
	}
	if s.idx >= len(s.items) && !env.OutletClosed(out) {
		env.Complete(out)
	}
}

// iterateSourceLogic emits elements produced by next until it reports
// exhaustion.
type iterateSourceLogic struct {
	BaseLogic
	next func() (any, bool)
}

// NewIterateSourceLogic creates a source stage driven by a generator
// function. next is called once per granted demand; returning false
// completes the source.
func NewIterateSourceLogic(next func() (any, bool)) Logic {
	return &iterateSourceLogic{next: next}
}

func (s *iterateSourceLogic) OnPull(env *Env, out int) {
	for env.HasDemand(out) {
		v, ok := s.next()
		if !ok {
			env.Complete(out)
			return
		}
		env.Push(out, v)
	}
}

// failedSourceLogic fails its outlet immediately on start.
type failedSourceLogic struct {
	BaseLogic
	err error
}

// NewFailedSourceLogic creates a source stage that emits nothing and
// fails with err.
func NewFailedSourceLogic(err error) Logic {
	return &failedSourceLogic{err: err}
}

func (s *failedSourceLogic) OnStart(env *Env) {
	env.FailAll(s.err)
}
