package builder

import (
	"strings"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// Stage is a step of a target build. Stages are ordered, and a build runs
// every stage up to and including its stop-after stage.
type Stage int

const (
	StageReadDescriptor Stage = iota
	StagePrepare
	StageBuild
	StageCopyResult
	StageCleanup
	StageAll
)

var stageNames = []string{
	StageReadDescriptor: "read_descriptor",
	StagePrepare:        "prepare",
	StageBuild:          "build",
	StageCopyResult:     "copy_result",
	StageCleanup:        "cleanup",
	StageAll:            "all",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Stages lists the stage names in order.
func Stages() []string {
	out := make([]string, len(stageNames))
	copy(out, stageNames)
	return out
}

// ParseStage parses a stage name case-insensitively. Dashes are accepted in
// place of underscores.
func ParseStage(name string) (Stage, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, candidate := range stageNames {
		if candidate == normalized {
			return Stage(i), nil
		}
	}
	return StageAll, cerrors.Configf("unknown stage %q, want one of %s", name, strings.Join(stageNames, ", "))
}

// Reaches reports whether a build stopping after s runs stage other.
func (s Stage) Reaches(other Stage) bool {
	return s >= other
}
