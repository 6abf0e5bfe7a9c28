package core

// Transformer mutates a LogResponse in place before it is rendered.
type Transformer interface {
	Transform(r *LogResponse) error
}

// Chain applies transformers in order, stopping at the first error.
func Chain(r *LogResponse, transformers ...Transformer) error {
	for _, tr := range transformers {
		if err := tr.Transform(r); err != nil {
			return err
		}
	}
	return nil
}
