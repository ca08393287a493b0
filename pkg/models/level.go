package models

import "strconv"

// Level is a CEFR proficiency level
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists CEFR levels from weakest to strongest
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Index returns the position of the level in Levels, or 0 for unknown values
func (l Level) Index() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return 0
}

// Next returns the following level and false when l is already the ceiling
func (l Level) Next() (Level, bool) {
	i := l.Index()
	if i >= len(Levels)-1 {
		return l, false
	}
	return Levels[i+1], true
}

// IsValid reports whether l is one of the known levels
func (l Level) IsValid() bool {
	for _, lvl := range Levels {
		if lvl == l {
			return true
		}
	}
	return false
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
