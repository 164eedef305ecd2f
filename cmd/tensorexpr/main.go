// Package main provides the tensorexpr CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/backend/cpu"
	"github.com/born-ml/tensorexpr/exec"
	"github.com/born-ml/tensorexpr/expr"
	"github.com/born-ml/tensorexpr/kernels"
	"github.com/born-ml/tensorexpr/serialization"
	"github.com/born-ml/tensorexpr/tensor"
)

const version = "v0.0.1-dev"

func usage() {
	fmt.Println("tensorexpr - lazy tensor expressions for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  info       Show the execution configuration")
	fmt.Println("  demo       Build and run a few expressions")
	fmt.Println("  inspect    List the tensors of a SafeTensors file")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	switch flag.Arg(0) {
	case "version":
		fmt.Printf("tensorexpr %s\n", version)
	case "info":
		cfg := exec.DefaultConfig()
		fmt.Printf("workers:     %d\n", cfg.NumWorkers)
		fmt.Printf("min chunk:   %d\n", cfg.MinChunkSize)
		fmt.Printf("parallel:    %v\n", cfg.Enabled)
	case "demo":
		if err := demo(context.Background()); err != nil {
			klog.Errorf("demo failed: %+v", err)
			os.Exit(1)
		}
	case "inspect":
		if flag.NArg() != 2 {
			usage()
			os.Exit(2)
		}
		if err := inspect(flag.Arg(1)); err != nil {
			klog.Errorf("inspect failed: %+v", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

func demo(ctx context.Context) error {
	backend := cpu.New()
	e := exec.New(exec.WithStream())
	defer e.Close()

	a, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := tensor.FromSlice([]float32{7, 8, 9}, tensor.Shape{3}, backend)
	if err != nil {
		return err
	}
	defer b.Release()
	sum, err := tensor.Allocate[float32](tensor.Shape{2, 3}, backend)
	if err != nil {
		return err
	}
	defer sum.Release()

	add, err := expr.Add[float32](expr.Of(a), expr.Of(b))
	if err != nil {
		return err
	}
	x, err := exec.Build(sum.View(), expr.Operator[float32](add))
	if err != nil {
		return err
	}
	e.Submit(x)

	id, err := expr.Identity[float64](tensor.Shape{3, 3})
	if err != nil {
		return err
	}
	scaled, err := expr.Mul[float64](id, expr.Scalar[float64](5))
	if err != nil {
		return err
	}
	window, err := expr.Hann[float64](tensor.Shape{8}, 0)
	if err != nil {
		return err
	}
	spectrum, err := kernels.FFT(window)
	if err != nil {
		return err
	}
	defer spectrum.Release()

	if err := e.Synchronize(ctx); err != nil {
		return err
	}
	fmt.Printf("[[1 2 3] [4 5 6]] + [7 8 9] = %v\n", sum.Values())

	w := serialization.NewWriter()
	if err := serialization.Add(w, "sum", sum); err != nil {
		return err
	}
	saved := filepath.Join(os.TempDir(), "tensorexpr-demo.safetensors")
	if err := w.WriteFile(saved); err != nil {
		return err
	}
	fmt.Printf("saved sum to %s\n", saved)

	five, err := exec.Eval[float64](ctx, scaled, backend, e.Config())
	if err != nil {
		return err
	}
	defer five.Release()
	fmt.Printf("identity(3) * 5 = %v\n", five.Values())

	fft, err := exec.Eval[float64](ctx, spectrum, backend, e.Config())
	if err != nil {
		return err
	}
	defer fft.Release()
	fmt.Printf("fft(hann(8)) = %v\n", fft.Values())
	fmt.Printf("expression:\n%s", expr.Format(spectrum))
	fmt.Printf("memory: %v\n", backend.Stats())
	return nil
}

func inspect(path string) error {
	f, err := serialization.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range f.Names() {
		e, _ := f.Entry(name)
		fmt.Printf("%-40s %-5s %v\n", name, e.DType, e.TensorShape())
	}
	for k, v := range f.Metadata() {
		fmt.Printf("metadata %s=%s\n", k, v)
	}
	if err := f.Verify(); err != nil {
		return err
	}
	fmt.Println("checksum ok")
	return nil
}
