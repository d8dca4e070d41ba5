package gdag

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewBuilder(t *testing.T) {
	b := NewBuilder()
	assert.NotZero(t, b)
	assert.NotZero(t, b.Graph())
	assert.NoError(t, b.Err())
}

func TestAddStage(t *testing.T) {
	t.Run("valid stage registration", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		assert.NoError(t, b.Err())

		stage, exists := b.Stage("src")
		assert.True(t, exists)
		assert.Equal(t, KindSource, stage.Kind)
		assert.Equal(t, []StageID{"src"}, b.Graph().StageOrder)
	})

	t.Run("duplicate stage ID", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testSource("src", stringType))
		assert.Error(t, b.Err())
		assert.True(t, errors.Is(b.Err(), ErrStageAlreadyExists))
	})

	t.Run("empty stage ID", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("", intType))
		assert.True(t, errors.Is(b.Err(), ErrInvalidStageID))
	})

	t.Run("whitespace in stage ID", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("my source", intType))
		assert.True(t, errors.Is(b.Err(), ErrInvalidStageID))
	})

	t.Run("max demand defaults to one", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		stage, _ := b.Stage("src")
		assert.Equal(t, 1, stage.MaxDemand)
	})
}

func TestConnect(t *testing.T) {
	t.Run("valid edge", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testSink("snk", intType))
		b.Connect(ref("src", 0), ref("snk", 0))
		assert.NoError(t, b.Err())

		edge, ok := b.Graph().EdgeFrom(ref("src", 0))
		assert.True(t, ok)
		assert.Equal(t, ref("snk", 0), edge.To)

		edge, ok = b.Graph().EdgeInto(ref("snk", 0))
		assert.True(t, ok)
		assert.Equal(t, ref("src", 0), edge.From)
	})

	t.Run("type mismatch", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testSink("snk", stringType))
		b.Connect(ref("src", 0), ref("snk", 0))
		assert.True(t, errors.Is(b.Err(), ErrTypeMismatch))
	})

	t.Run("untyped port matches anything", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", nil))
		b.AddStage(testSink("snk", stringType))
		b.Connect(ref("src", 0), ref("snk", 0))
		assert.NoError(t, b.Err())
	})

	t.Run("unknown stage", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.Connect(ref("src", 0), ref("nonexistent", 0))
		assert.True(t, errors.Is(b.Err(), ErrStageNotFound))
	})

	t.Run("port out of range", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testSink("snk", intType))
		b.Connect(ref("src", 3), ref("snk", 0))
		assert.True(t, errors.Is(b.Err(), ErrPortOutOfRange))
	})

	t.Run("outlet connected twice", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testSink("snk1", intType))
		b.AddStage(testSink("snk2", intType))
		b.Connect(ref("src", 0), ref("snk1", 0))
		b.Connect(ref("src", 0), ref("snk2", 0))
		assert.True(t, errors.Is(b.Err(), ErrPortAlreadyConnected))
	})

	t.Run("inlet connected twice", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src1", intType))
		b.AddStage(testSource("src2", intType))
		b.AddStage(testSink("snk", intType))
		b.Connect(ref("src1", 0), ref("snk", 0))
		b.Connect(ref("src2", 0), ref("snk", 0))
		assert.True(t, errors.Is(b.Err(), ErrPortAlreadyConnected))
	})

	t.Run("errors are sticky", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("", intType))
		first := b.Err()
		assert.Error(t, first)

		// Later valid operations remain no-ops.
		b.AddStage(testSource("src", intType))
		_, exists := b.Stage("src")
		assert.False(t, exists)
		assert.Equal(t, first, b.Err())
	})
}

func TestBuild(t *testing.T) {
	t.Run("closed graph builds", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		b.AddStage(testFlow("flw", intType, intType))
		b.AddStage(testSink("snk", intType))
		b.Connect(ref("src", 0), ref("flw", 0))
		b.Connect(ref("flw", 0), ref("snk", 0))

		g, err := b.Build()
		assert.NoError(t, err)
		assert.True(t, g.IsClosed())
	})

	t.Run("open graph rejected", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		_, err := b.Build()
		assert.True(t, errors.Is(err, ErrGraphNotClosed))
	})

	t.Run("empty graph rejected", func(t *testing.T) {
		b := NewBuilder()
		_, err := b.Build()
		assert.True(t, errors.Is(err, ErrGraphNotClosed))
	})

	t.Run("recorded error surfaces", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("", intType))
		_, err := b.Build()
		assert.True(t, errors.Is(err, ErrInvalidStageID))
	})

	t.Run("must build panics on error", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSource("src", intType))
		assert.Panics(t, func() { b.MustBuild() })
	})

	t.Run("build open allows open ports", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testFlow("flw", intType, intType))
		g, err := b.BuildOpen()
		assert.NoError(t, err)
		assert.Equal(t, []PortRef{ref("flw", 0)}, g.OpenInlets())
		assert.Equal(t, []PortRef{ref("flw", 0)}, g.OpenOutlets())
	})
}

func TestShapes(t *testing.T) {
	t.Run("flow shape matches", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testFlow("flw", intType, intType))
		g, err := b.BuildOpen()
		assert.NoError(t, err)

		shape := FlowShape{In: ref("flw", 0), Out: ref("flw", 0)}
		assert.NoError(t, shape.Check(g))
	})

	t.Run("source shape rejects extra open inlet", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testFlow("flw", intType, intType))
		g, err := b.BuildOpen()
		assert.NoError(t, err)

		shape := SourceShape{Out: ref("flw", 0)}
		assert.True(t, errors.Is(shape.Check(g), ErrInvalidShape))
	})

	t.Run("sink shape matches", func(t *testing.T) {
		b := NewBuilder()
		b.AddStage(testSink("snk", intType))
		g, err := b.BuildOpen()
		assert.NoError(t, err)

		shape := SinkShape{In: ref("snk", 0)}
		assert.NoError(t, shape.Check(g))
	})
}
