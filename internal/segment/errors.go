package segment

import "errors"

var (
	// ErrInvalidID is returned for a negative segment id.
	ErrInvalidID = errors.New("segment id must not be negative")
	// ErrNoTargets is returned when a segment declares no targets.
	ErrNoTargets = errors.New("segment must declare at least one target")
	// ErrEmptyPath is returned for a blank target, dependency or package name.
	ErrEmptyPath = errors.New("empty path or name")
	// ErrNoHandle is returned when no execution environment is supplied.
	ErrNoHandle = errors.New("segment requires an execution environment")
	// ErrNoPayload is returned when a segment is built without a payload.
	ErrNoPayload = errors.New("segment requires a recipe or a script")
	// ErrTargetIsDependency is returned when a path is both a target and a dependency.
	ErrTargetIsDependency = errors.New("target is also declared as a dependency")
	// ErrTargetIsScript is returned when a target is the script that produces it.
	ErrTargetIsScript = errors.New("target is the script itself")
	// ErrScriptNotFound is returned when a script path does not exist.
	ErrScriptNotFound = errors.New("script not found")
	// ErrInvalidRecipe is returned when a recipe does not parse as an expression.
	ErrInvalidRecipe = errors.New("recipe is not a valid expression")
)
