package surface

import "fmt"

// ID identifies one surface. It is unique among the surfaces registered
// with a scheduler.
type ID int32

// Status is the run state of a surface.
type Status int

const (
	// StatusUnrunning means no tree is mounted.
	StatusUnrunning Status = iota
	// StatusRunning means the tree is mounted and receives updates.
	StatusRunning
	// StatusSuspended means the tree stays mounted but updates are held
	// back until Resume.
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusUnrunning:
		return "unrunning"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// DisplayMode controls whether a running surface paints. It is
// independent of Status.
type DisplayMode int

const (
	// DisplayModeVisible paints the surface on every scheduler tick.
	DisplayModeVisible DisplayMode = iota
	// DisplayModeHidden keeps the surface mounted without painting.
	DisplayModeHidden
	// DisplayModeSuspended keeps the surface mounted and asks the pipeline to
	// defer commits.
	DisplayModeSuspended
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayModeVisible:
		return "visible"
	case DisplayModeHidden:
		return "hidden"
	case DisplayModeSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("DisplayMode(%d)", int(m))
	}
}

// ParseDisplayMode converts a display mode name to a DisplayMode.
// The empty string maps to DisplayModeVisible.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "", "visible":
		return DisplayModeVisible, nil
	case "hidden":
		return DisplayModeHidden, nil
	case "suspended":
		return DisplayModeSuspended, nil
	default:
		return DisplayModeVisible, fmt.Errorf("unknown display mode %q", s)
	}
}
