// Package terrain is the boundary to the external terrain analysis tool that
// performs all raster algebra and vector geometry.
//
// Every operation is a Request naming the op, its input datasets, its scalar
// parameters and the path the result must be written to. A Runner executes
// requests; Client turns the typed Service methods into requests.
package terrain

import "context"

// Operation names understood by the terrain tool.
const (
	OpFill                  = "fill"
	OpFlowDirection         = "flow_direction"
	OpFlowAccumulation      = "flow_accumulation"
	OpConditional           = "conditional"
	OpSetNull               = "set_null"
	OpStreamOrder           = "stream_order"
	OpVectorizeStreams      = "vectorize_streams"
	OpIntersect             = "intersect"
	OpMultipartToSinglepart = "multipart_to_singlepart"
	OpExtractByAttribute    = "extract_by_attribute"
	OpSampleRasterAtPoints  = "sample_raster_at_points"
	OpSelect                = "select"
	OpCreateRoutes          = "create_routes"
	OpLocateAlongRoutes     = "locate_along_routes"
	OpSnapPourPoints        = "snap_pour_points"
	OpDelineateWatersheds   = "delineate_watersheds"
	OpZonalStatistics       = "zonal_statistics"
	OpClip                  = "clip"
	OpAverageRasters        = "average_rasters"
	OpSumRasters            = "sum_rasters"
	OpAttributes            = "attributes"
)

// Request is one terrain operation.
type Request struct {
	Op      string            `json:"op"`
	Inputs  map[string]string `json:"inputs,omitempty"`
	Rasters []string          `json:"rasters,omitempty"`
	Params  map[string]any    `json:"params,omitempty"`
	Output  string            `json:"output"`
	Env     Env               `json:"env"`
}

// Env is the processing environment sent with every request.
type Env struct {
	Projection int    `json:"projection"`
	Scratch    string `json:"scratch,omitempty"`
}

// Response is the tool's answer. Output is the path actually written; for
// table-producing operations it is a CSV file.
type Response struct {
	Output string `json:"output"`
}

// Runner executes terrain requests.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}
