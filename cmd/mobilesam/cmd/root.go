package cmd

import (
	"fmt"

	"github.com/getcharzp/go-mobilesam/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// Execute 执行根命令
func Execute() error {
	return newRootCmd().Execute()
}

// app 命令间共享的状态
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "mobilesam",
		Short: "Promptable image segmentation with MobileSAM ONNX models",
		Long: `mobilesam encodes an image once and decodes masks from point prompts
using a MobileSAM encoder/decoder pair on ONNX Runtime.

Examples:
  mobilesam segment --image dog.jpg --point 320,240 --out mask.png
  mobilesam segment --image dog.jpg --point 320,240 --point 10,10,0 --overlay overlay.png`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if cfg.LogDevelopment {
				err = logger.InitDevelopment(cfg.LogLevel)
			} else {
				err = logger.InitProduction(cfg.LogLevel)
			}
			if err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./mobilesam.yaml or $HOME/.config/mobilesam/mobilesam.yaml)")
	flags.String("onnxruntime-lib", "", "path to the onnxruntime shared library")
	flags.String("encoder", "", "path to the image encoder ONNX model")
	flags.String("decoder", "", "path to the prompt decoder ONNX model")
	flags.Bool("cuda", false, "enable the CUDA execution provider")
	flags.Int("threads", 0, "intra-op thread count (0 = onnxruntime default)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	bindings := map[string]string{
		"onnxruntime_lib": "onnxruntime-lib",
		"encoder":         "encoder",
		"decoder":         "decoder",
		"use_cuda":        "cuda",
		"num_threads":     "threads",
		"log_level":       "log-level",
	}
	for key, flag := range bindings {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newSegmentCmd(a), newConfigCmd(a))
	return root
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "onnxruntime_lib: %s\n", c.OnnxRuntimeLib)
			fmt.Fprintf(w, "encoder: %s\n", c.Encoder)
			fmt.Fprintf(w, "decoder: %s\n", c.Decoder)
			fmt.Fprintf(w, "use_cuda: %t\n", c.UseCuda)
			fmt.Fprintf(w, "num_threads: %d\n", c.NumThreads)
			fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
			fmt.Fprintf(w, "log_development: %t\n", c.LogDevelopment)
			return nil
		},
	}
}
