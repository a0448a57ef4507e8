package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/krateoplatformops/plumbing/env"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"classification-dispatcher/internal/evaluator"
)

type options struct {
	dataset   string
	modelType string
	dataDir   string
	modelURL  string
	timeout   time.Duration
}

func newRootCmd(fs afero.Fs, httpClient *http.Client) *cobra.Command {
	o := options{}

	cmd := &cobra.Command{
		Use:           "evaluator",
		Short:         "Report test-set accuracy of a pretrained classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), fs, httpClient, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.dataset, "dataset", "", "Dataset to evaluate on (mnist, kmnist)")
	flags.StringVar(&o.modelType, "type", "", "Model architecture (ff, cnn)")
	flags.StringVar(&o.dataDir, "data-dir", env.String("DATA_DIR", "./data"), "Directory holding <dataset>/t10k-*-ubyte[.gz]")
	flags.StringVar(&o.modelURL, "model-url", env.String("MODEL_URL", "http://localhost:8080"), "Base URL of the KServe V2 model server")
	flags.DurationVar(&o.timeout, "timeout", 10*time.Minute, "Overall evaluation timeout")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func run(ctx context.Context, out io.Writer, fs afero.Fs, httpClient *http.Client, o options) error {
	start := time.Now()

	ds, err := evaluator.ParseDataset(o.dataset)
	if err != nil {
		return err
	}
	mt, err := evaluator.ParseModelType(o.modelType)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Evaluating model: dataset='%s', type='%s'\n", ds, mt)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	split, err := evaluator.NewIDXProvider(fs, o.dataDir).TestSplit(ctx, ds)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	scorer := evaluator.NewKServeScorer(httpClient, o.modelURL, ds, mt)
	res, err := evaluator.Evaluate(ctx, split, scorer, evaluator.DefaultBatchSize)
	if err != nil {
		return fmt.Errorf("inference error: %w", err)
	}

	fmt.Fprintf(out, "Accuracy of the network on the 10K test images: %d %%\n", res.Accuracy())
	fmt.Fprintf(out, "Time passed: %.2f sec\n", time.Since(start).Seconds())
	return nil
}

func main() {
	cmd := newRootCmd(afero.NewOsFs(), &http.Client{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	os.Exit(0)
}
