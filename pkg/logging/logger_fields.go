package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Component(name string) Field {
	return String("component", name)
}

// Engine field helpers
func EngineID(id string) Field {
	return String("engine_id", id)
}

func NodeID(id string) Field {
	return String("node_id", id)
}

func Tick(n uint64) Field {
	return Uint64("tick", n)
}

func Alpha(a float64) Field {
	return Float64("alpha", a)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(key string, n int) Field {
	return Int(key, n)
}

func Path(p string) Field {
	return String("path", p)
}
