// Copyright 2025 The vfscore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements the vfscore binary: configuration loading, the
// filesystem init sequence, and a minimal interactive shell over the
// mounted tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/kardianos/osext"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vfscore/vfscore/internal/bdev"
	"github.com/vfscore/vfscore/internal/cfg"
	"github.com/vfscore/vfscore/internal/common"
	"github.com/vfscore/vfscore/internal/logger"
	"github.com/vfscore/vfscore/internal/metrics"
	"github.com/vfscore/vfscore/internal/monitor"
	"github.com/vfscore/vfscore/internal/vfs"

	// Backends register themselves; dumbfs must be linked in before the
	// init sequence mounts it.
	_ "github.com/vfscore/vfscore/internal/fs/dumbfs"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	viperInstance = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "vfscore [flags]",
	Short: "Mount a flat-archive image and browse it through the VFS core",
	Long: `vfscore boots a small virtual filesystem: it binds the configured
flat-archive image to the block device "initrd", mounts the "dumbfs"
backend on /, and drops into a shell exercising the open/read/readdir
surface against the mounted tree.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		config, err := cfg.Unmarshal(viperInstance)
		if err != nil {
			return err
		}
		return run(cmd.Context(), &config)
	},
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	viperInstance.SetConfigFile(cfgFile)
	configFileErr = viperInstance.ReadInConfig()
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config-file")
	bindErr = cfg.BindFlags(viperInstance, rootCmd.PersistentFlags())
}

// resolveInitrdPath falls back to an initrd.img next to the executable
// when no path is configured, so the binary can be dropped beside an
// image and run with no flags at all.
func resolveInitrdPath(config *cfg.Config) (string, error) {
	if config.FileSystem.InitrdPath != "" {
		return config.FileSystem.InitrdPath, nil
	}
	dir, err := osext.ExecutableFolder()
	if err != nil {
		return "", fmt.Errorf("locating executable folder: %w", err)
	}
	return filepath.Join(dir, "initrd.img"), nil
}

// run performs the filesystem init sequence and then hands control to the
// shell. Any failure mounting dumbfs on / is fatal.
func run(ctx context.Context, config *cfg.Config) error {
	if err := logger.InitLogFile(config.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	metricsShutdown, err := monitor.SetupOTelMetricExporters(ctx, config)
	if err != nil {
		return err
	}
	tracingShutdown, err := monitor.SetupTracing(ctx, config)
	if err != nil {
		return err
	}
	shutdown := common.JoinShutdownFunc(metricsShutdown, tracingShutdown)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Errorf("telemetry shutdown: %v", err)
		}
	}()

	metricHandle := metrics.NewNoopMetrics()
	if config.Metrics.PrometheusPort > 0 {
		metricHandle, err = metrics.NewOTelMetrics()
		if err != nil {
			return fmt.Errorf("creating metric instruments: %w", err)
		}
	}

	initrdPath, err := resolveInitrdPath(config)
	if err != nil {
		return err
	}
	bdev.RegisterFileDevice("initrd", initrdPath)

	fsys := vfs.New(metricHandle, timeutil.RealClock())
	sess := vfs.RootSession()
	if err := fsys.Mount(ctx, sess, "/", "dumbfs", "initrd"); err != nil {
		return fmt.Errorf("fatal: mounting dumbfs on / from %q: %w", initrdPath, err)
	}

	return runShell(ctx, fsys, sess, os.Stdin, os.Stdout)
}
