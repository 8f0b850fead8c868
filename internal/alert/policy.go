package alert

import "fmt"

type Decision int

const (
	Normal Decision = iota
	Exceeded
)

func (d Decision) String() string {
	switch d {
	case Normal:
		return "NORMAL"
	case Exceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NORMAL":
		*d = Normal
	case "EXCEEDED":
		*d = Exceeded
	default:
		return fmt.Errorf("unknown decision %q", text)
	}
	return nil
}

// Evaluate returns Exceeded iff headCount is strictly greater than threshold.
func Evaluate(headCount, threshold int) Decision {
	if headCount > threshold {
		return Exceeded
	}
	return Normal
}
