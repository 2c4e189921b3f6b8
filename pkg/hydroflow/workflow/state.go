package workflow

// Stage identifiers.
const (
	StageHydrology = "hydrology"
	StageFault     = "fault"
	StageWatershed = "watershed"
	StageBQART     = "bqart"
)

// Sub-batch directory names.
const (
	WatershedCalcsDir = "watershed_calcs"
	ClimateCalcsDir   = "climate_calcs"
	OriginalsDir      = "originals"
)

// State is the run state carried between stages and stored in every
// checkpoint. It only holds paths and small scalars; stage outputs live in
// the manifests it points at.
type State struct {
	Mode     Mode   `json:"mode"`
	Scenario string `json:"scenario"`

	Batch         string `json:"batch"`
	HydroManifest string `json:"hydro_manifest,omitempty"`

	// RunFaults is set when pour points have to be derived from faults.
	RunFaults  bool   `json:"run_faults"`
	PourPoints string `json:"pour_points,omitempty"`

	WatershedBatch    string `json:"watershed_batch,omitempty"`
	WatershedManifest string `json:"watershed_manifest,omitempty"`

	ClimateBatch  string `json:"climate_batch,omitempty"`
	BQARTManifest string `json:"bqart_manifest,omitempty"`
	Output        string `json:"output,omitempty"`

	// Zones is the number of zones written to Output; Dropped lists zones
	// left out of the statistics join.
	Zones   int   `json:"zones"`
	Dropped []int `json:"dropped,omitempty"`

	Completed []string `json:"completed,omitempty"`
}

// ManifestPath returns the manifest flushed by the latest completed stage.
func (s State) ManifestPath() string {
	switch {
	case s.BQARTManifest != "":
		return s.BQARTManifest
	case s.WatershedManifest != "":
		return s.WatershedManifest
	default:
		return s.HydroManifest
	}
}

func (s State) done(stage string) State {
	s.Completed = append(append([]string(nil), s.Completed...), stage)
	return s
}
