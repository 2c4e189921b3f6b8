package terrain

import (
	"context"
	"fmt"
)

// Service is the set of terrain operations the pipeline needs. Every method
// writes its result to out and returns the path written.
type Service interface {
	Fill(ctx context.Context, dem, out string) (string, error)
	FlowDirection(ctx context.Context, filled, forceFlow, out string) (string, error)
	FlowAccumulation(ctx context.Context, flowDir string, opts Accumulation, out string) (string, error)
	Conditional(ctx context.Context, raster, trueRaster string, falseConstant float64, predicate, out string) (string, error)
	SetNull(ctx context.Context, raster, falseRaster, predicate, out string) (string, error)
	StreamOrder(ctx context.Context, streams, flowDir, method, out string) (string, error)
	VectorizeStreams(ctx context.Context, order, flowDir, out string) (string, error)

	Intersect(ctx context.Context, a, b string, tolerance float64, out string) (string, error)
	MultipartToSinglepart(ctx context.Context, vector, out string) (string, error)
	ExtractByAttribute(ctx context.Context, raster, predicate, out string) (string, error)
	SampleRasterAtPoints(ctx context.Context, points, raster, out string) (string, error)
	Select(ctx context.Context, vector, predicate, out string) (string, error)
	CreateRoutes(ctx context.Context, lines, idField, out string) (string, error)
	LocateAlongRoutes(ctx context.Context, points, routes, idField string, radius float64, out string) (*Table, error)
	Attributes(ctx context.Context, dataset, out string) (*Table, error)

	SnapPourPoints(ctx context.Context, points, flowAcc string, distance float64, idField, out string) (string, error)
	DelineateWatersheds(ctx context.Context, flowDir, pourPoints, field, out string) (string, error)

	ZonalStatistics(ctx context.Context, zones, valueRaster, out string) (*Table, error)
	Clip(ctx context.Context, raster, extent, out string) (string, error)
	AverageRasters(ctx context.Context, rasters []string, out string) (string, error)
	SumRasters(ctx context.Context, rasters []string, out string) (string, error)
}

// Accumulation holds the optional flow accumulation inputs.
type Accumulation struct {
	WeightRaster string
	DataType     string
}

// Client implements Service on top of a Runner.
type Client struct {
	runner Runner
}

var _ Service = (*Client)(nil)

// NewClient returns a Service that sends every operation to runner.
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

func (c *Client) run(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: req.Op, Err: err}
	}
	resp, err := c.runner.Run(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Output == "" {
		return req.Output, nil
	}
	return resp.Output, nil
}

func (c *Client) table(ctx context.Context, req Request) (*Table, error) {
	out, err := c.run(ctx, req)
	if err != nil {
		return nil, err
	}
	t, err := ReadCSVFile(out)
	if err != nil {
		return nil, &Error{Op: req.Op, Err: fmt.Errorf("read table: %w", err)}
	}
	return t, nil
}

// Fill implements Service.
func (c *Client) Fill(ctx context.Context, dem, out string) (string, error) {
	return c.run(ctx, Request{Op: OpFill, Inputs: map[string]string{"dem": dem}, Output: out})
}

// FlowDirection implements Service.
func (c *Client) FlowDirection(ctx context.Context, filled, forceFlow, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpFlowDirection,
		Inputs: map[string]string{"raster": filled},
		Params: map[string]any{"force_flow": forceFlow},
		Output: out,
	})
}

// FlowAccumulation implements Service.
func (c *Client) FlowAccumulation(ctx context.Context, flowDir string, opts Accumulation, out string) (string, error) {
	req := Request{
		Op:     OpFlowAccumulation,
		Inputs: map[string]string{"flow_direction": flowDir},
		Output: out,
	}
	if opts.WeightRaster != "" {
		req.Inputs["weight"] = opts.WeightRaster
	}
	if opts.DataType != "" {
		req.Params = map[string]any{"data_type": opts.DataType}
	}
	return c.run(ctx, req)
}

// Conditional implements Service.
func (c *Client) Conditional(ctx context.Context, raster, trueRaster string, falseConstant float64, predicate, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpConditional,
		Inputs: map[string]string{"raster": raster, "true_raster": trueRaster},
		Params: map[string]any{"false_constant": falseConstant, "predicate": predicate},
		Output: out,
	})
}

// SetNull implements Service.
func (c *Client) SetNull(ctx context.Context, raster, falseRaster, predicate, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpSetNull,
		Inputs: map[string]string{"raster": raster},
		Params: map[string]any{"false_raster": falseRaster, "predicate": predicate},
		Output: out,
	})
}

// StreamOrder implements Service.
func (c *Client) StreamOrder(ctx context.Context, streams, flowDir, method, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpStreamOrder,
		Inputs: map[string]string{"streams": streams, "flow_direction": flowDir},
		Params: map[string]any{"method": method},
		Output: out,
	})
}

// VectorizeStreams implements Service.
func (c *Client) VectorizeStreams(ctx context.Context, order, flowDir, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpVectorizeStreams,
		Inputs: map[string]string{"stream_order": order, "flow_direction": flowDir},
		Output: out,
	})
}

// Intersect implements Service. The result is a point dataset.
func (c *Client) Intersect(ctx context.Context, a, b string, tolerance float64, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpIntersect,
		Inputs: map[string]string{"a": a, "b": b},
		Params: map[string]any{"cluster_tolerance": tolerance, "output_type": "point"},
		Output: out,
	})
}

// MultipartToSinglepart implements Service.
func (c *Client) MultipartToSinglepart(ctx context.Context, vector, out string) (string, error) {
	return c.run(ctx, Request{Op: OpMultipartToSinglepart, Inputs: map[string]string{"vector": vector}, Output: out})
}

// ExtractByAttribute implements Service.
func (c *Client) ExtractByAttribute(ctx context.Context, raster, predicate, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpExtractByAttribute,
		Inputs: map[string]string{"raster": raster},
		Params: map[string]any{"predicate": predicate},
		Output: out,
	})
}

// SampleRasterAtPoints implements Service. Sampled values land in the
// RASTERVALU field of the output points.
func (c *Client) SampleRasterAtPoints(ctx context.Context, points, raster, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpSampleRasterAtPoints,
		Inputs: map[string]string{"points": points, "raster": raster},
		Params: map[string]any{"interpolate": true},
		Output: out,
	})
}

// Select implements Service.
func (c *Client) Select(ctx context.Context, vector, predicate, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpSelect,
		Inputs: map[string]string{"vector": vector},
		Params: map[string]any{"predicate": predicate},
		Output: out,
	})
}

// CreateRoutes implements Service. Routes are measured by length.
func (c *Client) CreateRoutes(ctx context.Context, lines, idField, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpCreateRoutes,
		Inputs: map[string]string{"lines": lines},
		Params: map[string]any{"id_field": idField, "measure": "LENGTH"},
		Output: out,
	})
}

// LocateAlongRoutes implements Service. The event table has one row per
// point and route within radius, with RID, MEAS and DISTANCE columns.
func (c *Client) LocateAlongRoutes(ctx context.Context, points, routes, idField string, radius float64, out string) (*Table, error) {
	return c.table(ctx, Request{
		Op:     OpLocateAlongRoutes,
		Inputs: map[string]string{"points": points, "routes": routes},
		Params: map[string]any{"id_field": idField, "radius": radius},
		Output: out,
	})
}

// Attributes implements Service.
func (c *Client) Attributes(ctx context.Context, dataset, out string) (*Table, error) {
	return c.table(ctx, Request{Op: OpAttributes, Inputs: map[string]string{"dataset": dataset}, Output: out})
}

// SnapPourPoints implements Service.
func (c *Client) SnapPourPoints(ctx context.Context, points, flowAcc string, distance float64, idField, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpSnapPourPoints,
		Inputs: map[string]string{"points": points, "flow_accumulation": flowAcc},
		Params: map[string]any{"distance": distance, "id_field": idField},
		Output: out,
	})
}

// DelineateWatersheds implements Service.
func (c *Client) DelineateWatersheds(ctx context.Context, flowDir, pourPoints, field, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpDelineateWatersheds,
		Inputs: map[string]string{"flow_direction": flowDir, "pour_points": pourPoints},
		Params: map[string]any{"field": field},
		Output: out,
	})
}

// ZonalStatistics implements Service. The table is keyed by VALUE and has
// AREA, MIN, MAX and MEAN columns among others.
func (c *Client) ZonalStatistics(ctx context.Context, zones, valueRaster, out string) (*Table, error) {
	return c.table(ctx, Request{
		Op:     OpZonalStatistics,
		Inputs: map[string]string{"zones": zones, "values": valueRaster},
		Params: map[string]any{"zone_field": "VALUE", "ignore_nodata": true},
		Output: out,
	})
}

// Clip implements Service.
func (c *Client) Clip(ctx context.Context, raster, extent, out string) (string, error) {
	return c.run(ctx, Request{
		Op:     OpClip,
		Inputs: map[string]string{"raster": raster, "extent": extent},
		Output: out,
	})
}

// AverageRasters implements Service.
func (c *Client) AverageRasters(ctx context.Context, rasters []string, out string) (string, error) {
	return c.run(ctx, Request{Op: OpAverageRasters, Rasters: rasters, Output: out})
}

// SumRasters implements Service.
func (c *Client) SumRasters(ctx context.Context, rasters []string, out string) (string, error) {
	return c.run(ctx, Request{Op: OpSumRasters, Rasters: rasters, Output: out})
}
