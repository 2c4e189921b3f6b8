/*
Package config loads the project configuration for a hydroflow run.

# Overview

A Config is decoded from YAML or JSON, has defaults applied, and is then
validated once. Nothing downstream re-checks keys: a Config returned by
FromFile is complete.

	cfg, err := config.FromFile("project.yml")
	if err != nil {
	    return err // *errors.ConfigError or *errors.IOError
	}

# Defaults

  - output: <root>/Output
  - scratch: <output>/scratch
  - checkpoint_db: <output>/hydroflow.db
  - flow_dir.force_flow: NORMAL
  - str_ord.method: STRAHLER
  - terrain.timeout: 30m (a duration string or a number of seconds)
  - bqart.workers: GOMAXPROCS

# Path variables

Path settings may refer to ${root} and ${project_name}; every path setting
except output may also refer to ${output}, after its default is applied.

	original_dem: ${root}/dem/${project_name}.tif
	pour_points_path: ${output}/pour_points.shp

Any other name is a ConfigError on the key that used it.

# Validation

Struct tags are checked with go-playground/validator; errors are reported
against the YAML key path, for example "faults.search_radius". Scenario
names must be unique and usable as file name fragments, since they become
part of climate cache file names.
*/
package config
