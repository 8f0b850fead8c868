package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"headwatch/internal/pipeline"
)

var (
	analyzeThreshold int
	analyzeOutputDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image-id|path]...",
	Short: "Count heads in images and alert when the count exceeds the threshold",
	Long: `Analyzes catalog images by their 1-based id or image files by path.
Without arguments every catalog image is analyzed.`,
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		threshold := conf.Counter.CountThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = analyzeThreshold
		}
		if threshold < 0 {
			logrus.Fatalf("invalid threshold %d", threshold)
		}

		ctx := context.Background()
		a := newApp(ctx, conf, nil)
		defer a.Close()

		sources, err := resolveSources(a.catalog, args)
		if err != nil {
			logrus.Fatal(err)
		}

		failed := 0
		for _, src := range sources {
			if err := analyzeOne(ctx, a, src, threshold); err != nil {
				logrus.Errorf("%v", err)
				failed++
			}
		}
		if failed > 0 {
			a.Close()
			os.Exit(1)
		}
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeThreshold, "threshold", "t", 0, "Head count threshold, defaults to counter.countThreshold")
	analyzeCmd.Flags().StringVarP(&analyzeOutputDir, "output", "o", "", "Directory to save annotated images to")
}

func resolveSources(catalog *pipeline.Catalog, args []string) ([]pipeline.Source, error) {
	if len(args) == 0 {
		sources := make([]pipeline.Source, 0, catalog.Len())
		for _, e := range catalog.Entries() {
			sources = append(sources, pipeline.FromPath(e.Path))
		}
		return sources, nil
	}

	sources := make([]pipeline.Source, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			sources = append(sources, pipeline.FromPath(arg))
			continue
		}
		path, err := catalog.Resolve(id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, pipeline.FromPath(path))
	}
	return sources, nil
}

func analyzeOne(ctx context.Context, a *app, src pipeline.Source, threshold int) error {
	r, err := a.analyzer.Analyze(ctx, src, threshold)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", r.Source, r.Message())
	select {
	case sig := <-a.visual.Signals():
		fmt.Printf("  !!! ALERT: %d heads on screen\n", sig.HeadCount)
	default:
	}
	for _, o := range r.Outcomes {
		if o.Detail != "" {
			fmt.Printf("  %-15s %s (%s)\n", o.Channel, o.Status, o.Detail)
		} else {
			fmt.Printf("  %-15s %s\n", o.Channel, o.Status)
		}
	}

	if analyzeOutputDir != "" {
		if err := os.MkdirAll(analyzeOutputDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		out := filepath.Join(analyzeOutputDir, r.ID+".jpg")
		if err := imaging.Save(r.Frame.Annotated, out); err != nil {
			return fmt.Errorf("save annotated image: %w", err)
		}
		fmt.Printf("  annotated image: %s\n", out)
	}
	return nil
}
