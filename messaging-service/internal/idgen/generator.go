package idgen

import "time"

type Generator interface {
	Generate() (string, error)
}

// TimedGenerator produces IDs that sort by the time passed in.
type TimedGenerator interface {
	Generator
	GenerateAt(t time.Time) (string, error)
}
