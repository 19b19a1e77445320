package fatigue

import "fmt"

// Level is the coarse fatigue severity.
type Level int

const (
	LevelNormal Level = iota
	LevelModerate
	LevelSevere
)

var levelNames = [...]string{"normal", "moderate", "severe"}

func (l Level) String() string {
	if l < LevelNormal || l > LevelSevere {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses the String form of a Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelNormal, fmt.Errorf("unknown fatigue level %q", s)
}

// LevelFor maps an accumulated event count to a Level: Severe at twice the
// threshold, Moderate at the threshold.
func LevelFor(count, threshold int) Level {
	switch {
	case count >= 2*threshold:
		return LevelSevere
	case count >= threshold:
		return LevelModerate
	default:
		return LevelNormal
	}
}
