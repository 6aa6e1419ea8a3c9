package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/kartoza/carbon-footprint/internal/footprint"
	"github.com/kartoza/carbon-footprint/internal/llm"
	"github.com/kartoza/carbon-footprint/internal/nn"
	"github.com/kartoza/carbon-footprint/internal/regression"
	"github.com/kartoza/carbon-footprint/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	var dataDir, modelPath, driver string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("port") {
				a.cfg.Port = port
			}
			if flags.Changed("data-dir") {
				a.cfg.DataDir = dataDir
			}
			if flags.Changed("model") {
				a.cfg.ModelPath = modelPath
			}
			if flags.Changed("store") {
				a.cfg.Calculations.Driver = driver
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			// Find an available port (try up to 10 ports starting from the requested one)
			availablePort, err := findAvailablePort(a.cfg.Port, 10)
			if err != nil {
				return err
			}
			if availablePort != a.cfg.Port {
				a.logger.Warn("port in use", zap.Int("requested", a.cfg.Port), zap.Int("using", availablePort))
				a.cfg.Port = availablePort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.logger.Info("carbon footprint API starting",
				zap.String("version", a.cfg.Version),
				zap.Int("port", a.cfg.Port),
				zap.String("data_dir", a.cfg.DataDir),
			)

			srv, err := server.New(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutting down")
				return srv.Stop(context.Background())
			})
			return g.Wait()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5000, "HTTP server port")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for saved calculations")
	cmd.Flags().StringVar(&modelPath, "model", "", "Emission model artifact (JSON)")
	cmd.Flags().StringVar(&driver, "store", "", "Calculation store driver: json or sqlite")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the carbon footprint chatbot a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbot, err := server.NewChatbot(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			reply := chatbot.Query(ctx, strings.Join(args, " "))
			if !reply.Success {
				return fmt.Errorf("%s (%s)", reply.Response, reply.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall time limit")
	return cmd
}

func newTipsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "tips [category]",
		Short:     "Print carbon reduction tips for travel, energy, waste or diet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: llm.TipCategories(),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), llm.Tips(args[0]))
			return nil
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var modelPath, formPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Calculate the footprint for a questionnaire JSON file (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				modelPath = a.cfg.ModelPath
			}
			calc := footprint.NewCalculator(nil, a.logger)
			if err := calc.LoadModel(modelPath); err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if formPath != "" && formPath != "-" {
				f, err := os.Open(formPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var form footprint.FormData
			if err := json.NewDecoder(r).Decode(&form); err != nil {
				return fmt.Errorf("failed to parse form: %w", err)
			}

			result, err := calc.Calculate(form)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Emission model artifact (defaults to config model_path)")
	cmd.Flags().StringVarP(&formPath, "form", "f", "-", "Questionnaire JSON file")
	return cmd
}

func newTrainCmd(a *app) *cobra.Command {
	var dataPath, outPath, target string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the emission model on an encoded CSV dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataPath == "" {
				return errors.New("--data is required")
			}
			if outPath == "" {
				outPath = a.cfg.ModelPath
			}

			ds, err := regression.ReadCSV(dataPath, footprint.Columns, target)
			if err != nil {
				return err
			}
			rows, _ := ds.X.Dims()
			a.logger.Info("dataset loaded", zap.String("path", dataPath), zap.Int("rows", rows))

			model, r2, err := regression.Train(ds, footprint.Columns)
			if err != nil {
				return err
			}
			if err := model.Save(outPath); err != nil {
				return err
			}

			a.logger.Info("model trained", zap.String("path", outPath), zap.Float64("r2", r2))
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (R² %.4f on %d rows)\n", outPath, r2, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "Training CSV with feature columns and the target")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output artifact (defaults to config model_path)")
	cmd.Flags().StringVar(&target, "target", regression.DefaultTarget, "Target column")
	return cmd
}

func newResNetCmd(a *app) *cobra.Command {
	var bands, classes, height, width int
	var headOut string
	var seed uint64
	var initWeights bool

	cmd := &cobra.Command{
		Use:   "resnet",
		Short: "Describe the ResNet classifier or write an initialised head",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("bands") {
				bands = a.cfg.ResNet.InputBands
			}
			if !cmd.Flags().Changed("classes") {
				classes = a.cfg.ResNet.OutputClasses
			}

			resnet, err := nn.Build(nn.ResNetConfig{InputBands: bands, OutputClasses: classes})
			if err != nil {
				return err
			}
			stages, err := resnet.FeatureShapes(1, height, width)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cfg := resnet.Config()
			fmt.Fprintf(out, "ResNet-50: %d bands, %d classes, %d parameters\n",
				cfg.InputBands, cfg.OutputClasses, resnet.ParamCount())
			for _, s := range stages {
				fmt.Fprintf(out, "  %-8s %v\n", s.Stage, s.Shape)
			}

			if initWeights {
				weights := resnet.InitWeights(rand.New(rand.NewPCG(seed, seed)))
				for _, l := range resnet.Layers() {
					w, ok := weights[l.Name]
					if !ok {
						continue
					}
					values := make([]float64, len(w))
					for i, v := range w {
						values[i] = float64(v)
					}
					fmt.Fprintf(out, "  %-32s n=%-8d std=%.5f expected=%.5f\n",
						l.Name, len(w), stat.StdDev(values, nil), nn.KaimingStd(l))
				}
			}

			if headOut != "" {
				head, err := nn.NewHead(nn.FeatureDim, classes, rand.New(rand.NewPCG(seed, seed)))
				if err != nil {
					return err
				}
				if err := head.Save(headOut); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote head to %s\n", headOut)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&bands, "bands", 11, "Input bands")
	cmd.Flags().IntVar(&classes, "classes", 11, "Output classes")
	cmd.Flags().IntVar(&height, "height", 256, "Patch height")
	cmd.Flags().IntVar(&width, "width", 256, "Patch width")
	cmd.Flags().StringVar(&headOut, "init-head", "", "Write a Kaiming-initialised classifier head to this path")
	cmd.Flags().BoolVar(&initWeights, "init-weights", false, "Draw Kaiming-normal weights and print each layer's standard deviation")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed for --init-head and --init-weights")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
