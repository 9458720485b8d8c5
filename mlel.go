// Package mlel provides the translation core of the ML emulation layer
// for Vulkan.
//
// The layer sits between a compute application and a baseline Vulkan
// driver and emulates the tensor and data-graph extensions. This
// package ties the two core pieces together:
//
//   - Translate parses a SPIR-V module and lowers its graph entry
//     points into a compute.GraphPipeline the execution layer can
//     dispatch.
//   - NewSubstitutor creates the descriptor substitution layer that
//     rewrites tensor resource bindings into buffer-backed bindings at
//     call time.
//
// Example usage:
//
//	pipeline, err := mlel.Translate(spirvBinary, mlel.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, segment := range pipeline.Segments {
//		fmt.Println(segment.Name, len(segment.Inputs), len(segment.Outputs))
//	}
package mlel

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/descriptor"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/graph"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
)

// Options configures translation and substitution.
type Options struct {
	// Lowering is the per-graph lowering strategy. Nil selects
	// graph.SegmentLowering.
	Lowering graph.Lowering

	// Substitution configures the descriptor substitution layer.
	Substitution descriptor.Options
}

// DefaultOptions returns the primary-mode configuration with the
// default lowering strategy.
func DefaultOptions() Options {
	return Options{Substitution: descriptor.DefaultOptions()}
}

// Translate parses a SPIR-V binary and lowers every graph it declares
// into an executable pipeline description.
//
// A module declaring no graphs yields an empty, valid pipeline. On
// error no pipeline is returned; a failed translation produces no
// usable artifact.
func Translate(binary []byte, opts Options) (*compute.GraphPipeline, error) {
	module, err := spirv.Parse(binary)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	return translateModule(module, opts)
}

// TranslateWords is Translate for a module already decoded into words.
func TranslateWords(words []uint32, opts Options) (*compute.GraphPipeline, error) {
	module, err := spirv.ParseWords(words)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	return translateModule(module, opts)
}

func translateModule(module *spirv.Module, opts Options) (*compute.GraphPipeline, error) {
	pipeline := &compute.GraphPipeline{}
	pass := graph.NewPass(module, pipeline, opts.Lowering)
	if err := pass.Run(); err != nil {
		return nil, errors.Wrap(err, "graph translation")
	}
	return pipeline, nil
}

// TranslateAll translates independent modules concurrently. Each
// module gets its own pass with exclusively owned state, so the
// translations do not contend. The first failure cancels the batch.
func TranslateAll(binaries [][]byte, opts Options) ([]*compute.GraphPipeline, error) {
	pipelines := make([]*compute.GraphPipeline, len(binaries))
	var g errgroup.Group
	for i, binary := range binaries {
		i, binary := i, binary
		g.Go(func() error {
			pipeline, err := Translate(binary, opts)
			if err != nil {
				return errors.Wrapf(err, "module %d", i)
			}
			pipelines[i] = pipeline
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// NewSubstitutor creates the descriptor substitution layer configured
// by opts.
func NewSubstitutor(opts Options) *descriptor.Substitutor {
	return descriptor.New(opts.Substitution)
}
