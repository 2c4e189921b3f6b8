package workflow

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/prompt"
)

// ErrNoBatches means a batch had to be selected from a directory that has
// none.
var ErrNoBatches = stderrors.New("no batches found")

// resolve turns a request into the initial state and the stage to start at.
func (p *Pipeline) resolve(req Request) (State, string, error) {
	s := State{Mode: req.Mode}

	scenario, err := p.resolveScenario(req.Scenario)
	if err != nil {
		return s, "", err
	}
	s.Scenario = scenario

	if req.Mode == ModeFull {
		dir, err := p.fullBatch(req.HydroBatch)
		if err != nil {
			return s, "", err
		}
		s.Batch = dir
		if err := p.resolvePourPoints(&s, req.PourPoints); err != nil {
			return s, "", err
		}
		return s, StageHydrology, nil
	}

	last, err := p.lastRun(req.LastRun)
	if err != nil {
		return s, "", err
	}

	if err := p.resolveHydro(&s, req, last); err != nil {
		return s, "", err
	}

	if req.Mode == ModeSkipToWatershed {
		if err := p.resolvePourPoints(&s, req.PourPoints); err != nil {
			return s, "", err
		}
		if s.RunFaults {
			return s, StageFault, nil
		}
		return s, StageWatershed, nil
	}

	if err := p.resolveWatershed(&s, req.WatershedBatch, last); err != nil {
		return s, "", err
	}
	return s, StageBQART, nil
}

// fullBatch returns the batch a full run works in: explicit, or a new one
// under the output root holding a copy of the original DEM.
func (p *Pipeline) fullBatch(explicit string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", &errors.IOError{Op: "open batch", Path: explicit, Err: err}
		}
		if !info.IsDir() {
			return "", &errors.IOError{Op: "open batch", Path: explicit, Err: fmt.Errorf("not a directory")}
		}
		return explicit, nil
	}

	dir, err := batch.Create(p.cfg.Output, p.clock)
	if err != nil {
		return "", err
	}
	if _, err := batch.CopyOriginal(p.cfg.OriginalDEM, dir); err != nil {
		return "", err
	}
	p.logger.Info("created batch", slog.String("batch", dir))
	return dir, nil
}

// lastRun returns the remembered batches the policy allows using.
func (p *Pipeline) lastRun(policy LastRunPolicy) (map[string]string, error) {
	if policy == LastRunIgnore {
		return nil, nil
	}
	values, err := p.record.Values()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || policy == LastRunUse {
		return values, nil
	}

	ok, err := p.prompt.Confirm("Use last run settings?")
	switch {
	case stderrors.Is(err, prompt.ErrNonInteractive):
		return nil, nil
	case err != nil:
		return nil, err
	case !ok:
		return nil, nil
	}
	return values, nil
}

// resolveHydro locates and validates the hydrology manifest of a skip run.
func (p *Pipeline) resolveHydro(s *State, req Request, last map[string]string) error {
	path := req.HydroManifest
	if path == "" {
		dir := req.HydroBatch
		if dir == "" {
			dir = last[manifest.KeyHydroBatch]
		}
		if dir == "" {
			picked, err := p.selectBatch(p.cfg.Output, "hydro")
			if err != nil {
				return err
			}
			dir = picked
		}
		path = filepath.Join(dir, manifest.HydroFile)
	}

	path, err := p.existingPath(path, "Path to hydro_paths manifest: ")
	if err != nil {
		return err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	if err := m.Require(manifest.HydroKeys...); err != nil {
		return err
	}

	s.Batch = absDir(path)
	s.HydroManifest = path
	return p.record.Set(manifest.KeyHydroBatch, s.Batch)
}

// resolveWatershed locates and validates the watershed manifest of a
// skip_to_bqart run.
func (p *Pipeline) resolveWatershed(s *State, explicit string, last map[string]string) error {
	calcs := filepath.Join(s.Batch, WatershedCalcsDir)
	dir := explicit
	if dir == "" {
		dir = last[manifest.KeyWatershedBatch]
		if dir != "" && !within(calcs, dir) {
			p.logger.Warn("last run watershed batch belongs to another hydro batch",
				slog.String("watershed_batch", dir),
				slog.String("hydro_batch", s.Batch),
			)
			dir = ""
		}
	}
	if dir == "" {
		picked, err := p.selectBatch(calcs, "watershed")
		if err != nil {
			return err
		}
		dir = picked
	}

	path, err := p.existingPath(filepath.Join(dir, manifest.WatershedFile), "Path to watershed_paths manifest: ")
	if err != nil {
		return err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	if err := m.Require(manifest.WatershedKeys...); err != nil {
		return err
	}

	s.WatershedBatch = absDir(path)
	s.WatershedManifest = path
	return p.record.Set(manifest.KeyWatershedBatch, s.WatershedBatch)
}

// resolvePourPoints decides where the watershed stage gets its pour points:
// an existing explicit or configured dataset, the fault stage, or the
// operator.
func (p *Pipeline) resolvePourPoints(s *State, explicit string) error {
	if explicit != "" {
		path, err := p.existingPath(explicit, "Path to pour point dataset: ")
		if err != nil {
			return err
		}
		s.PourPoints = path
		return nil
	}

	if exists(p.cfg.PourPointsPath) {
		s.PourPoints = p.cfg.PourPointsPath
		return nil
	}
	if p.cfg.HasFaults() && exists(p.cfg.FaultPath) {
		s.RunFaults = true
		return nil
	}

	path, err := p.existingPath(p.cfg.PourPointsPath, "Path to pour point dataset: ")
	if err != nil {
		return err
	}
	s.PourPoints = path
	return nil
}

// resolveScenario returns the named scenario or asks for one.
func (p *Pipeline) resolveScenario(name string) (string, error) {
	if name != "" {
		if _, ok := p.cfg.Scenario(name); !ok {
			return "", &errors.ConfigError{Key: "climates", Message: fmt.Sprintf("unknown climate scenario %q", name)}
		}
		return name, nil
	}

	names := p.cfg.ScenarioNames()
	switch len(names) {
	case 0:
		return "", &errors.ConfigError{Key: "climates", Message: "no climate scenarios configured"}
	case 1:
		return names[0], nil
	}
	i, err := p.prompt.Select("Pick climate scenario", names)
	if err != nil {
		return "", &errors.ConfigError{Key: "climates", Message: "no climate scenario chosen: " + err.Error()}
	}
	return names[i], nil
}

// selectBatch asks the operator to pick one of the batches under root, by
// day and then by time. A single candidate is picked without asking.
func (p *Pipeline) selectBatch(root, what string) (string, error) {
	op := "select " + what + " batch"
	entries, err := batch.List(root)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", &errors.IOError{Op: op, Path: root, Err: ErrNoBatches}
	}

	days := batch.GroupByDay(entries)
	day := days[0]
	if len(days) > 1 {
		labels := make([]string, len(days))
		for i, d := range days {
			labels[i] = d.Label
		}
		i, err := p.prompt.Select("Pick "+what+" batch day", labels)
		if err != nil {
			return "", &errors.IOError{Op: op, Path: root, Err: err}
		}
		day = days[i]
	}

	if len(day.Entries) == 1 {
		return day.Entries[0].Path, nil
	}
	times := make([]string, len(day.Entries))
	for i, e := range day.Entries {
		times[i] = e.Time
	}
	i, err := p.prompt.Select("Pick "+what+" batch time", times)
	if err != nil {
		return "", &errors.IOError{Op: op, Path: root, Err: err}
	}
	return day.Entries[i].Path, nil
}

// existingPath returns path when it exists and otherwise asks the operator
// until they name one that does. Without an operator the missing path is
// returned as an IOError.
func (p *Pipeline) existingPath(path, question string) (string, error) {
	for {
		if path != "" {
			if exists(path) {
				return path, nil
			}
			p.logger.Warn("path does not exist", slog.String("path", path))
		}
		answer, err := p.prompt.Path(question)
		if err != nil {
			return "", &errors.IOError{Op: "locate", Path: path, Err: fmt.Errorf("%w: %w", os.ErrNotExist, err)}
		}
		path = answer
	}
}

// within reports whether dir is a direct child of parent.
func within(parent, dir string) bool {
	pa, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	da, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return filepath.Dir(da) == pa
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func absDir(path string) string {
	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
