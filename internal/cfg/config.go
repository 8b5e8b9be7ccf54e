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

// Package cfg defines the configuration surface of the vfscore binary:
// flags and an optional YAML config file, layered in that order through
// viper. Environment variables are not read.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string `yaml:"app-name"`

	FileSystem FileSystemConfig `yaml:"file-system"`

	Logging LogConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`

	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type FileSystemConfig struct {
	// InitrdPath is the flat-archive image bound to the block device
	// name "initrd" before the init sequence runs. Empty means an
	// initrd.img next to the executable.
	InitrdPath string `yaml:"initrd-path"`
}

type LogConfig struct {
	// FilePath is where logs go; empty means stderr.
	FilePath string `yaml:"file-path"`

	Format LogFormat `yaml:"format"`

	Severity LogSeverity `yaml:"severity"`

	// Rotation is honored only when FilePath is set.
	Rotation LogRotationConfig `yaml:"log-rotate"`
}

type LogRotationConfig struct {
	MaxFileSizeMb int `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

type MetricsConfig struct {
	// PrometheusPort exposes a /metrics endpoint when positive; zero
	// disables the exporter entirely.
	PrometheusPort int `yaml:"prometheus-port"`
}

type MonitoringConfig struct {
	// ExperimentalTracingMode selects the trace exporter: "stdout" or
	// empty for none.
	ExperimentalTracingMode string `yaml:"experimental-tracing-mode"`
}

func BindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("app-name", "", "", "The application name of this instance.")

	err = v.BindPFlag("app-name", flagSet.Lookup("app-name"))
	if err != nil {
		return err
	}

	flagSet.StringP("initrd-path", "", "", "Path to the flat-archive image mounted as the \"initrd\" block device.")

	err = v.BindPFlag("file-system.initrd-path", flagSet.Lookup("initrd-path"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "File to log to. Logs to stderr when unset.")

	err = v.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "json", "The format of the log file: 'text' or 'json'.")

	err = v.BindPFlag("logging.format", flagSet.Lookup("log-format"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "INFO", "Specifies the logging severity: one of TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")

	err = v.BindPFlag("logging.severity", flagSet.Lookup("log-severity"))
	if err != nil {
		return err
	}

	flagSet.IntP("log-rotate-max-file-size-mb", "", 512, "The maximum size of the log file in megabytes before rotation.")

	err = v.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-file-size-mb"))
	if err != nil {
		return err
	}

	flagSet.IntP("log-rotate-backup-file-count", "", 10, "The maximum number of rotated log files to retain. 0 retains all.")

	err = v.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backup-file-count"))
	if err != nil {
		return err
	}

	flagSet.BoolP("log-rotate-compress", "", true, "Controls whether rotated log files should be compressed.")

	err = v.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress"))
	if err != nil {
		return err
	}

	flagSet.IntP("prometheus-port", "", 0, "Expose Prometheus metrics on this port. 0 disables the exporter.")

	err = v.BindPFlag("metrics.prometheus-port", flagSet.Lookup("prometheus-port"))
	if err != nil {
		return err
	}

	flagSet.StringP("experimental-tracing-mode", "", "", "Experimental: trace exporter selection. Only 'stdout' is supported.")

	err = v.BindPFlag("monitoring.experimental-tracing-mode", flagSet.Lookup("experimental-tracing-mode"))
	if err != nil {
		return err
	}

	return nil
}
