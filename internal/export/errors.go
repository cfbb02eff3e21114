package export

import "fmt"

// Stage names the part of an export that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSetup    Stage = "setup"
	StageClip     Stage = "clip"
	StageCompose  Stage = "compose"
	StageFinalize Stage = "finalize"
)

// Error is a pipeline-level failure. No output is left at the destination
// when one is returned.
type Error struct {
	Stage   Stage
	SceneID string
	Err     error
}

func (e *Error) Error() string {
	if e.SceneID != "" {
		return fmt.Sprintf("export failed at %s (scene %s): %v", e.Stage, e.SceneID, e.Err)
	}
	return fmt.Sprintf("export failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
