// graphinfo - inspects the graph entry points of a SPIR-V module.
// Prints each graph's tensors, bindings and constants as the
// translation passes see them.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	mlel "github.com/arm/ai-ml-emulation-layer-for-vulkan"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: graphinfo [flags] <module.spv>")
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pipeline, err := mlel.Translate(data, mlel.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("graphs: %d, constants: %d\n", len(pipeline.Segments), len(pipeline.Constants))
	for _, c := range pipeline.Constants {
		fmt.Printf("constant %d: %s, %d bytes\n", c.ID, tensorString(c.Tensor), len(c.Data))
	}
	for _, segment := range pipeline.Segments {
		fmt.Printf("graph %q\n", segment.Name)
		for i, t := range segment.Inputs {
			fmt.Printf("  input  %d: %s\n", i, tensorString(t))
		}
		for i, t := range segment.Outputs {
			fmt.Printf("  output %d: %s\n", i, tensorString(t))
		}
		for _, b := range segment.Bindings {
			fmt.Printf("  binding set=%d binding=%d index=%d\n", b.Set, b.Binding, b.ArrayIndex)
		}
	}
}

func tensorString(t *compute.TensorDescriptor) string {
	if t == nil {
		return "<nil>"
	}
	if t.IsComposite() {
		return fmt.Sprintf("composite of %d tensors at set=%d binding=%d",
			len(t.SubTensors), t.Set, t.Binding)
	}
	return fmt.Sprintf("format=%d shape=%v set=%d binding=%d", t.Format, t.Shape, t.Set, t.Binding)
}
