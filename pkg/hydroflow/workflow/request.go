package workflow

import (
	"fmt"
)

// Mode selects the stage a run starts at.
type Mode string

// Run modes.
const (
	// ModeFull creates a batch and runs every stage.
	ModeFull Mode = "full"
	// ModeSkipToWatershed reuses a hydrology batch.
	ModeSkipToWatershed Mode = "skip_to_watershed"
	// ModeSkipToBQART reuses a hydrology batch and a watershed batch.
	ModeSkipToBQART Mode = "skip_to_bqart"
)

// ParseMode maps a mode name or its command name (default, run,
// process_watersheds, calculate_bqart) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case string(ModeFull), "default", "run", "":
		return ModeFull, nil
	case string(ModeSkipToWatershed), "process_watersheds":
		return ModeSkipToWatershed, nil
	case string(ModeSkipToBQART), "calculate_bqart":
		return ModeSkipToBQART, nil
	default:
		return "", fmt.Errorf("workflow: unknown mode %q", s)
	}
}

// LastRunPolicy controls whether the last-run record is consulted.
type LastRunPolicy int

const (
	// LastRunAsk asks the operator before reusing remembered batches.
	// Without an operator the record is not used.
	LastRunAsk LastRunPolicy = iota
	// LastRunUse reuses remembered batches without asking.
	LastRunUse
	// LastRunIgnore never reads the record. It is still updated.
	LastRunIgnore
)

// Request describes one pipeline run. Empty fields are resolved from the
// last-run record or by asking the operator.
type Request struct {
	Mode Mode

	// HydroBatch is an existing batch directory. In ModeFull hydrology runs
	// inside it instead of a new batch.
	HydroBatch string

	// HydroManifest is an explicit hydro_paths.yml. It wins over HydroBatch.
	HydroManifest string

	// WatershedBatch is an existing watershed sub-batch (ModeSkipToBQART).
	WatershedBatch string

	// PourPoints overrides the configured pour-points dataset.
	PourPoints string

	// Scenario names the climate scenario.
	Scenario string

	LastRun LastRunPolicy
}

func (r Request) validate() error {
	switch r.Mode {
	case ModeFull, ModeSkipToWatershed, ModeSkipToBQART:
	default:
		return fmt.Errorf("workflow: unknown mode %q", r.Mode)
	}
	if r.Mode != ModeSkipToBQART && r.WatershedBatch != "" {
		return fmt.Errorf("workflow: a watershed batch only applies to %s", ModeSkipToBQART)
	}
	return nil
}
