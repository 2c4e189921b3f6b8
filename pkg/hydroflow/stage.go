package hydroflow

// END is the terminal stage identifier.
// Use this as an edge target to indicate the pipeline should stop.
const END = "__end__"

// StageFunc is the signature of every pipeline stage.
// A stage receives the execution context and current state and returns the
// updated state. State is passed by value; return the modified copy.
//
// Example:
//
//	func fill(ctx hydroflow.Context, s Run) (Run, error) {
//	    out, err := svc.Fill(ctx, s.DEM, s.Path("fill"))
//	    if err != nil {
//	        return s, err
//	    }
//	    s.Filled = out
//	    return s, nil
//	}
type StageFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the next stage from state. It must return a stage id or
// END; anything else fails the run with a RouterError.
type RouterFunc[S any] func(ctx Context, state S) string

// ManifestRecorder is implemented by states that know which manifest file
// their last stage flushed. The path is stored in the stage checkpoint.
type ManifestRecorder interface {
	ManifestPath() string
}
